package story

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNSI(t *testing.T) {
	tests := []struct {
		name     string
		report   ViolationReport
		expected int
	}{
		{
			name:     "no violations scores perfect",
			report:   ViolationReport{},
			expected: 100,
		},
		{
			name:     "single character inconsistency",
			report:   ViolationReport{CharacterInconsistency: 1},
			expected: 90,
		},
		{
			name:     "single timeline contradiction",
			report:   ViolationReport{TimelineContradiction: 1},
			expected: 90,
		},
		{
			name:     "single world rule violation",
			report:   ViolationReport{WorldRuleViolation: 1},
			expected: 85,
		},
		{
			name:     "single ignored fact",
			report:   ViolationReport{IgnoredFact: 1},
			expected: 95,
		},
		{
			name:     "three world rule violations",
			report:   ViolationReport{WorldRuleViolation: 3},
			expected: 55,
		},
		{
			name:     "floor at zero",
			report:   ViolationReport{WorldRuleViolation: 10},
			expected: 0,
		},
		{
			name:     "mixed violations",
			report:   ViolationReport{WorldRuleViolation: 2, IgnoredFact: 1},
			expected: 65,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NSI(tt.report))
		})
	}
}

func TestNSI_MonotoneInEachCategory(t *testing.T) {
	for _, c := range Categories {
		prev := MaxNSI
		for n := 1; n <= 25; n++ {
			var r ViolationReport
			r.SetCount(c, n)
			score := NSI(r)
			if score > prev {
				t.Fatalf("NSI increased for %s at count %d: %d > %d", c.Wire(), n, score, prev)
			}
			if score < 0 {
				t.Fatalf("NSI went negative for %s at count %d", c.Wire(), n)
			}
			prev = score
		}
	}
}

func TestViolationReport_SetCountClampsNegative(t *testing.T) {
	var r ViolationReport
	r.SetCount(WorldRuleViolation, -3)
	assert.Equal(t, 0, r.WorldRuleViolation)
	assert.Equal(t, 100, NSI(r))
}

func TestClampHint(t *testing.T) {
	long := make([]byte, 150)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, ClampHint(string(long)), MaxHintChars)
	assert.Equal(t, "short hint", ClampHint("  short hint \n"))
}

func TestClampHintKeepsRuneBoundaries(t *testing.T) {
	// 99 ASCII bytes followed by a 3-byte rune; a byte-count cut at 100
	// would land inside the rune.
	long := strings.Repeat("a", 99) + "語語語"
	clamped := ClampHint(long)

	assert.True(t, utf8.ValidString(clamped))
	assert.LessOrEqual(t, len(clamped), MaxHintChars)
	assert.Equal(t, strings.Repeat("a", 99), clamped)
}

func TestMessageScore(t *testing.T) {
	var m Message
	assert.Equal(t, MaxNSI, m.Score(), "unscored records read optimistically")

	m.SetScore(72)
	assert.Equal(t, 72, m.Score())

	m.SetScore(0)
	assert.Equal(t, 0, m.Score(), "an explicit zero is not treated as absent")
}
