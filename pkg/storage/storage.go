package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/fableloom/fableloom/pkg/story"
)

// StoryStore is the storage collaborator contract. The engine never manages
// persistence itself; it only computes what to persist. Summary and world
// rules are simple per-story get/set text fields; messages form an ordered
// log with a per-message stability score.
type StoryStore interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Story operations
	CreateStory(ctx context.Context, s *story.Story) error
	GetStory(ctx context.Context, id uuid.UUID) (*story.Story, error)
	UpdateStory(ctx context.Context, s *story.Story) error
	ListStories(ctx context.Context) ([]*story.Story, error)
	DeleteStory(ctx context.Context, id uuid.UUID) error

	// Message log (ordered by insertion)
	AppendMessage(ctx context.Context, storyID uuid.UUID, m *story.Message) error
	UpdateMessage(ctx context.Context, storyID uuid.UUID, m *story.Message) error
	Messages(ctx context.Context, storyID uuid.UUID) ([]story.Message, error)

	// Hint log (ordered by creation)
	AppendHint(ctx context.Context, storyID uuid.UUID, h story.Hint) error
	Hints(ctx context.Context, storyID uuid.UUID) ([]story.Hint, error)

	// Per-story singletons
	Summary(ctx context.Context, storyID uuid.UUID) (string, error)
	SetSummary(ctx context.Context, storyID uuid.UUID, summary string) error
	WorldRules(ctx context.Context, storyID uuid.UUID) (string, error)
	SetWorldRules(ctx context.Context, storyID uuid.UUID, rules string) error
}
