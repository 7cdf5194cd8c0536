package services

import (
	"context"

	"github.com/fableloom/fableloom/pkg/chat"
)

// LLMService defines the interface for interacting with the LLM API
type LLMService interface {
	// InitModel initializes the LLM model on startup
	InitModel(ctx context.Context, modelName string) error

	// Chat generates a completion for the given conversation
	Chat(ctx context.Context, messages []chat.Message, opts chat.Options) (string, error)

	// IsModelReady checks if the specified model is ready for use
	IsModelReady(ctx context.Context, modelName string) (bool, error)
}
