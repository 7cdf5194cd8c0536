package story

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxHintChars caps hint storage; hints longer than this are truncated.
const MaxHintChars = 100

// Story is one storytelling session. Summary and WorldRules are per-story
// singletons maintained by the narrative engine.
type Story struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Genre     string    `json:"genre,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one turn of the story: the user's prompt and the generated
// segment, with the stability score computed for that turn.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Index     int       `json:"index"` // insertion order within the story
	Prompt    string    `json:"prompt"`
	Text      string    `json:"text"`
	Hint      string    `json:"hint,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// StabilityScore is nil when the record predates scoring; read it
	// through Score, which falls back to the optimistic maximum.
	StabilityScore *int `json:"stability_score,omitempty"`
}

// Score returns the segment's stability score, or MaxNSI when the stored
// record carries none.
func (m *Message) Score() int {
	if m.StabilityScore == nil {
		return MaxNSI
	}
	return *m.StabilityScore
}

// SetScore records the segment's stability score.
func (m *Message) SetScore(score int) {
	m.StabilityScore = &score
}

// Hint is a short semantic fingerprint of one story segment, used for cheap
// long-range context retrieval. Immutable once created; refinement replaces
// the hint attached to a message rather than editing this record.
type Hint struct {
	Text      string    `json:"text"`
	MessageID uuid.UUID `json:"message_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewStory creates a story with a fresh ID and timestamps.
func NewStory(name, genre string) *Story {
	now := time.Now()
	return &Story{
		ID:        uuid.New(),
		Name:      name,
		Genre:     genre,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ClampHint enforces the hint storage cap. Truncation backs up to a rune
// boundary so a clamped hint is still valid UTF-8.
func ClampHint(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= MaxHintChars {
		return text
	}
	cut := MaxHintChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func (s *Story) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("story name cannot be empty")
	}
	return nil
}
