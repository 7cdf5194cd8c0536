package narrative

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fableloom/fableloom/pkg/story"
)

// Metadata wire format delimiters. Parsing is strictly delimiter-anchored:
// if the block is absent or malformed, counts default to zero and the rule
// update is empty. Nothing here guesses at partial values.
const (
	MetaBlockStart = "<WRLD>"
	MetaBlockEnd   = "</WRLD>"
)

// Metadata is the parsed machine-readable tail of a generation response.
type Metadata struct {
	UpdatedRules string
	Report       story.ViolationReport
}

var (
	metaRulesRe = regexp.MustCompile(`(?s)UPDATED_RULES:\s*(.*?)\s*VIOLATION_COUNTS:`)
	metaCountRe = regexp.MustCompile(`(?m)^\s*([A-Z_]+):\s*(-?\d+)\s*$`)
)

// ParseMetadata locates the metadata block in raw model output and returns
// the visible story text with the block removed, plus the parsed metadata.
//
// If no complete block is present, the visible text is the raw output
// unchanged and the metadata is the optimistic default (all-zero counts,
// empty rule update).
func ParseMetadata(raw string) (visible string, meta Metadata) {
	start := strings.Index(raw, MetaBlockStart)
	if start < 0 {
		return raw, Metadata{}
	}
	rel := strings.Index(raw[start:], MetaBlockEnd)
	if rel < 0 {
		return raw, Metadata{}
	}
	end := start + rel + len(MetaBlockEnd)

	block := raw[start+len(MetaBlockStart) : start+rel]
	visible = strings.TrimRight(raw[:start], " \t\n") + raw[end:]

	meta.UpdatedRules = parseRuleDelta(block)
	meta.Report = parseViolationCounts(block)
	return visible, meta
}

// parseRuleDelta extracts the UPDATED_RULES field, which runs from its label
// to the start of the VIOLATION_COUNTS field. An unparsable delta yields an
// empty string so the caller retains the previous rule set.
func parseRuleDelta(block string) string {
	m := metaRulesRe.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// parseViolationCounts reads the four known categories from the block.
// Missing or malformed categories stay zero; unknown categories are ignored
// because the category set is closed.
func parseViolationCounts(block string) story.ViolationReport {
	var report story.ViolationReport
	counts := make(map[string]int)
	for _, m := range metaCountRe.FindAllStringSubmatch(block, -1) {
		n, err := strconv.Atoi(m[2])
		if err != nil || n < 0 {
			continue
		}
		counts[m[1]] = n
	}
	for _, c := range story.Categories {
		if n, ok := counts[c.Wire()]; ok {
			report.SetCount(c, n)
		}
	}
	return report
}
