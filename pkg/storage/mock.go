package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/fableloom/fableloom/pkg/story"
)

// MockStore is an in-memory StoryStore for testing.
type MockStore struct {
	mu       sync.RWMutex
	stories  map[uuid.UUID]*story.Story
	messages map[uuid.UUID][]story.Message
	hints    map[uuid.UUID][]story.Hint
	summary  map[uuid.UUID]string
	rules    map[uuid.UUID]string

	// PingErr, when set, is returned by Ping to simulate an unhealthy store.
	PingErr error
}

var _ StoryStore = (*MockStore)(nil)

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{
		stories:  make(map[uuid.UUID]*story.Story),
		messages: make(map[uuid.UUID][]story.Message),
		hints:    make(map[uuid.UUID][]story.Hint),
		summary:  make(map[uuid.UUID]string),
		rules:    make(map[uuid.UUID]string),
	}
}

func (m *MockStore) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *MockStore) Close() error {
	return nil
}

func (m *MockStore) CreateStory(ctx context.Context, s *story.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.stories[s.ID] = &cp
	return nil
}

func (m *MockStore) GetStory(ctx context.Context, id uuid.UUID) (*story.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stories[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *MockStore) UpdateStory(ctx context.Context, s *story.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stories[s.ID]; !ok {
		return fmt.Errorf("story not found: %s", s.ID)
	}
	cp := *s
	m.stories[s.ID] = &cp
	return nil
}

func (m *MockStore) ListStories(ctx context.Context) ([]*story.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*story.Story, 0, len(m.stories))
	for _, s := range m.stories {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockStore) DeleteStory(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stories[id]; !ok {
		return fmt.Errorf("story not found: %s", id)
	}
	delete(m.stories, id)
	delete(m.messages, id)
	delete(m.hints, id)
	delete(m.summary, id)
	delete(m.rules, id)
	return nil
}

func (m *MockStore) AppendMessage(ctx context.Context, storyID uuid.UUID, msg *story.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.Index = len(m.messages[storyID])
	m.messages[storyID] = append(m.messages[storyID], *msg)
	return nil
}

func (m *MockStore) UpdateMessage(ctx context.Context, storyID uuid.UUID, msg *story.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[storyID]
	for i := range msgs {
		if msgs[i].ID == msg.ID {
			msgs[i] = *msg
			return nil
		}
	}
	return fmt.Errorf("message not found: %s", msg.ID)
}

func (m *MockStore) Messages(ctx context.Context, storyID uuid.UUID) ([]story.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages[storyID]
	out := make([]story.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *MockStore) AppendHint(ctx context.Context, storyID uuid.UUID, h story.Hint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hints[storyID] = append(m.hints[storyID], h)
	return nil
}

func (m *MockStore) Hints(ctx context.Context, storyID uuid.UUID) ([]story.Hint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hs := m.hints[storyID]
	out := make([]story.Hint, len(hs))
	copy(out, hs)
	return out, nil
}

func (m *MockStore) Summary(ctx context.Context, storyID uuid.UUID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summary[storyID], nil
}

func (m *MockStore) SetSummary(ctx context.Context, storyID uuid.UUID, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summary[storyID] = summary
	return nil
}

func (m *MockStore) WorldRules(ctx context.Context, storyID uuid.UUID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rules[storyID], nil
}

func (m *MockStore) SetWorldRules(ctx context.Context, storyID uuid.UUID, rules string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[storyID] = rules
	return nil
}
