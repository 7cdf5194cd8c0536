package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/fableloom/fableloom/pkg/chat"
)

// Groq exposes an OpenAI-compatible API, so the official OpenAI client
// works against it with a different base URL.
const groqBaseURL = "https://api.groq.com/openai/v1"

const DefaultGroqMaxTokens = 2048

// GroqService implements LLMService for Groq-hosted models
type GroqService struct {
	client    *openai.Client
	modelName string
	logger    *slog.Logger
}

func NewGroqService(apiKey string, modelName string, logger *slog.Logger) *GroqService {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(groqBaseURL),
	)
	return &GroqService{
		client:    &client,
		modelName: modelName,
		logger:    logger,
	}
}

func (g *GroqService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// IsModelReady verifies the model exists on the Groq side.
func (g *GroqService) IsModelReady(ctx context.Context, modelName string) (bool, error) {
	if modelName == "" {
		modelName = g.modelName
	}
	_, err := g.client.Models.Get(ctx, modelName)
	if err != nil {
		return false, fmt.Errorf("model lookup failed: %w", err)
	}
	return true, nil
}

// Chat generates a completion using the Groq chat completions endpoint
func (g *GroqService) Chat(ctx context.Context, messages []chat.Message, opts chat.Options) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    g.modelName,
		Messages: toOpenAIMessages(messages),
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultGroqMaxTokens
	}
	params.MaxTokens = openai.Int(int64(maxTokens))

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []chat.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case chat.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
