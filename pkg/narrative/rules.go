package narrative

import "strings"

// MergeRules applies the model's proposed rule delta to the current rule set.
// An empty or whitespace-only delta keeps the current rules: established
// canon is never erased by a parse miss. Rules grow or are explicitly
// revised, never silently dropped.
func MergeRules(current, delta string) string {
	delta = strings.TrimSpace(delta)
	if delta == "" {
		return current
	}
	return delta
}
