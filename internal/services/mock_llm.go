package services

import (
	"context"
	"sync"

	"github.com/fableloom/fableloom/pkg/chat"
)

// MockLLMAPI is a mock implementation of LLMService for testing
type MockLLMAPI struct {
	InitModelFunc    func(ctx context.Context, modelName string) error
	ChatFunc         func(ctx context.Context, messages []chat.Message, opts chat.Options) (string, error)
	IsModelReadyFunc func(ctx context.Context, modelName string) (bool, error)

	// Track calls for testing
	InitModelCalls    []string
	ChatCalls         []ChatCall
	IsModelReadyCalls []string

	mu sync.Mutex // protects all fields above
}

type ChatCall struct {
	Messages []chat.Message
	Opts     chat.Options
}

// NewMockLLMAPI creates a new mock LLM service
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{
		InitModelCalls:    make([]string, 0),
		ChatCalls:         make([]ChatCall, 0),
		IsModelReadyCalls: make([]string, 0),
	}
}

// InitModel mocks model initialization
func (m *MockLLMAPI) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitModelCalls = append(m.InitModelCalls, modelName)

	if m.InitModelFunc != nil {
		return m.InitModelFunc(ctx, modelName)
	}
	return nil
}

// Chat mocks completion generation
func (m *MockLLMAPI) Chat(ctx context.Context, messages []chat.Message, opts chat.Options) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ChatCalls = append(m.ChatCalls, ChatCall{Messages: messages, Opts: opts})

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, messages, opts)
	}
	return "mock response", nil
}

// IsModelReady mocks model readiness checks
func (m *MockLLMAPI) IsModelReady(ctx context.Context, modelName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.IsModelReadyCalls = append(m.IsModelReadyCalls, modelName)

	if m.IsModelReadyFunc != nil {
		return m.IsModelReadyFunc(ctx, modelName)
	}
	return true, nil
}

var _ LLMService = (*MockLLMAPI)(nil)
