package narrative

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fableloom/fableloom/pkg/chat"
)

const (
	// RecentHintCount is how many trailing hints are always retrieved.
	RecentHintCount = 5
	// MaxRetrievedHints bounds retriever output so prompt cost stays O(1)
	// against unbounded story length.
	MaxRetrievedHints = 10

	// hintTailChars bounds extraction cost on long segments.
	hintTailChars = 2000
	// hintMaxWords caps the extracted hint even if the model rambles.
	hintMaxWords = 10
	// minKeywordLen: summary tokens must be longer than this to count as
	// relevance keywords.
	minKeywordLen = 4

	hintTemperature = 0.3
	hintMaxTokens   = 50
)

const hintSystemPrompt = `You extract ultra-short story context hints. Output ONLY 5-10 words that capture the key context.`

const hintUserPrompt = `Extract a 5-10 word hint capturing the key context from this story segment.
Output ONLY the hint, nothing else. No bullet points, no explanations.

Story:
%s`

// ExtractHint reduces a story segment to a short semantic fingerprint using
// one cheap LLM call over the segment's tail. It fails open: any failure
// yields an empty hint, which callers must treat as "no hint available".
func (e *Engine) ExtractHint(ctx context.Context, text string) string {
	tail := text
	if len(tail) > hintTailChars {
		start := len(tail) - hintTailChars
		// Advance to a rune boundary so the tail stays valid UTF-8.
		for start < len(tail) && !utf8.RuneStart(tail[start]) {
			start++
		}
		tail = tail[start:]
	}

	messages := []chat.Message{
		chat.System(hintSystemPrompt),
		chat.User(fmt.Sprintf(hintUserPrompt, tail)),
	}

	out, err := e.llm.Chat(ctx, messages, chat.Options{
		Temperature: hintTemperature,
		MaxTokens:   hintMaxTokens,
	})
	if err != nil {
		e.logger.Error("Hint extraction failed", "error", err)
		return ""
	}

	words := strings.Fields(out)
	if len(words) > hintMaxWords {
		words = words[:hintMaxWords]
	}
	return strings.Join(words, " ")
}

// RetrieveHints selects a bounded, relevant subset of the hint history.
// The last RecentHintCount hints are always included in chronological order;
// older hints follow, also chronologically, when their lowercase text
// contains any lowercase summary token longer than minKeywordLen characters.
// Duplicates are skipped and the output never exceeds MaxRetrievedHints.
//
// Relevance is naive substring containment, not semantic similarity. It can
// over-match common words and under-match plurals; that trade-off is accepted
// for determinism and zero cost.
func RetrieveHints(history []string, summary string) []string {
	if len(history) == 0 {
		return nil
	}

	recentStart := len(history) - RecentHintCount
	if recentStart < 0 {
		recentStart = 0
	}

	selected := make([]string, 0, MaxRetrievedHints)
	seen := make(map[string]bool)

	for _, h := range history[recentStart:] {
		if h == "" || seen[h] {
			continue
		}
		selected = append(selected, h)
		seen[h] = true
		if len(selected) == MaxRetrievedHints {
			return selected
		}
	}

	keywords := summaryKeywords(summary)
	if len(keywords) == 0 {
		return selected
	}

	for _, h := range history[:recentStart] {
		if h == "" || seen[h] {
			continue
		}
		lower := strings.ToLower(h)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				selected = append(selected, h)
				seen[h] = true
				break
			}
		}
		if len(selected) == MaxRetrievedHints {
			break
		}
	}

	return selected
}

func summaryKeywords(summary string) []string {
	var keywords []string
	for _, tok := range strings.Fields(strings.ToLower(summary)) {
		if len(tok) > minKeywordLen {
			keywords = append(keywords, tok)
		}
	}
	return keywords
}
