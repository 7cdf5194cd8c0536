package narrative

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetrieveHints_RecencyOnly(t *testing.T) {
	history := []string{"h1", "h2", "h3", "h4", "h5", "h6", "h7", "h8"}
	// Summary keywords overlap nothing in h1-h3.
	got := RetrieveHints(history, "completely unrelated wording")

	assert.Equal(t, []string{"h4", "h5", "h6", "h7", "h8"}, got)
}

func TestRetrieveHints_RelevanceFromOlderHints(t *testing.T) {
	history := []string{
		"Mira finds the silver locket",
		"storm sinks the fishing fleet",
		"old lighthouse keeper vanishes",
		"h4", "h5", "h6", "h7", "h8",
	}
	got := RetrieveHints(history, "The locket holds a portrait of the lighthouse keeper")

	// Last five first, then matching older hints in chronological order.
	assert.Equal(t, []string{
		"h4", "h5", "h6", "h7", "h8",
		"Mira finds the silver locket",
		"old lighthouse keeper vanishes",
	}, got)
}

func TestRetrieveHints_CapAtTen(t *testing.T) {
	history := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		history = append(history, "dragon sighting number "+string(rune('a'+i)))
	}
	got := RetrieveHints(history, "another dragon appears")
	assert.Len(t, got, MaxRetrievedHints)
}

func TestRetrieveHints_Idempotent(t *testing.T) {
	history := []string{"a mysterious caravan", "the river runs backwards", "h3", "h4", "h5", "h6"}
	summary := "The caravan crossed the river at dawn."

	first := RetrieveHints(history, summary)
	second := RetrieveHints(history, summary)
	assert.Equal(t, first, second)
}

func TestRetrieveHints_Dedupes(t *testing.T) {
	history := []string{"repeated hint", "x1", "x2", "repeated hint", "x3", "x4", "x5"}
	got := RetrieveHints(history, "nothing matching whatsoever")

	seen := make(map[string]int)
	for _, h := range got {
		seen[h]++
	}
	for h, n := range seen {
		assert.Equal(t, 1, n, "hint %q appeared more than once", h)
	}
}

func TestRetrieveHints_ShortHistory(t *testing.T) {
	history := []string{"only one hint"}
	assert.Equal(t, history, RetrieveHints(history, ""))
	assert.Nil(t, RetrieveHints(nil, "summary text here"))
}

func TestRetrieveHints_SkipsEmptyHints(t *testing.T) {
	history := []string{"h1", "", "h3", "", "h5", "h6"}
	got := RetrieveHints(history, "")
	assert.NotContains(t, got, "")
}

func TestRetrieveHints_ShortKeywordsDoNotMatch(t *testing.T) {
	// Every summary token is four characters or fewer, so no older hint
	// qualifies on relevance.
	history := []string{"the cave holds gold", "h2", "h3", "h4", "h5", "h6"}
	got := RetrieveHints(history, "the big cave has gold in it")

	assert.Equal(t, []string{"h2", "h3", "h4", "h5", "h6"}, got)
}

func TestSummaryKeywords(t *testing.T) {
	kws := summaryKeywords("The Captain sailed NORTH past tiny isles")
	assert.Contains(t, kws, "captain")
	assert.Contains(t, kws, "sailed")
	assert.Contains(t, kws, "north")
	assert.NotContains(t, kws, "tiny")
	assert.NotContains(t, kws, "past")
}
