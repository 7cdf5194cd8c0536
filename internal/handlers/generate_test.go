package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fableloom/fableloom/internal/services"
	"github.com/fableloom/fableloom/pkg/chat"
	"github.com/fableloom/fableloom/pkg/narrative"
	"github.com/fableloom/fableloom/pkg/story"
	"github.com/fableloom/fableloom/pkg/storage"
)

const generatedSegment = `The storm finally broke over the lighthouse.

<WRLD>
UPDATED_RULES:
- The lighthouse beam repels the mist creatures
VIOLATION_COUNTS:
CHARACTER_INCONSISTENCY: 0
TIMELINE_CONTRADICTION: 0
WORLD_RULE_VIOLATION: 1
IGNORED_FACT: 0
</WRLD>`

// scriptedLLM answers generation, hint extraction, and summarization calls
// based on the system prompt of each request.
func scriptedLLM() *services.MockLLMAPI {
	mock := services.NewMockLLMAPI()
	mock.ChatFunc = func(ctx context.Context, messages []chat.Message, opts chat.Options) (string, error) {
		system := ""
		if len(messages) > 0 {
			system = messages[0].Content
		}
		switch {
		case strings.Contains(system, "ultra-short story context hints"):
			return "storm breaks over the lighthouse", nil
		case strings.Contains(system, "rolling summary"):
			return "The crew weathered the storm at the lighthouse.", nil
		default:
			return generatedSegment, nil
		}
	}
	return mock
}

func newTestDeps(t *testing.T) (*narrative.Engine, *storage.MockStore, *services.MockLLMAPI) {
	t.Helper()
	mock := scriptedLLM()
	engine := narrative.NewEngine(mock, narrative.DefaultParams(), slog.Default())
	return engine, storage.NewMockStore(), mock
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestGenerateHandler_FirstTurn(t *testing.T) {
	engine, store, _ := newTestDeps(t)
	s := story.NewStory("Lighthouse", "horror")
	require.NoError(t, store.CreateStory(context.Background(), s))

	handler := NewGenerateHandler(engine, store, slog.Default())
	w := postJSON(t, handler, "/v1/generate", GenerateRequest{StoryID: s.ID, Prompt: "Begin the story."})

	require.Equal(t, http.StatusOK, w.Code)

	var resp GenerateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "The storm finally broke over the lighthouse.", resp.Message.Text)
	assert.NotContains(t, resp.Message.Text, "<WRLD>")
	assert.Equal(t, 85, resp.StabilityScore)
	assert.Equal(t, 1, resp.Violations.WorldRuleViolation)
	assert.False(t, resp.SummaryUpdated)

	// Segment, hint, and merged rules all persisted.
	msgs, err := store.Messages(context.Background(), s.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Begin the story.", msgs[0].Prompt)
	assert.Equal(t, 85, msgs[0].Score())

	hints, err := store.Hints(context.Background(), s.ID)
	require.NoError(t, err)
	require.Len(t, hints, 1)
	assert.Equal(t, "storm breaks over the lighthouse", hints[0].Text)
	assert.Equal(t, msgs[0].ID, hints[0].MessageID)

	rules, err := store.WorldRules(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, "- The lighthouse beam repels the mist creatures", rules)
}

func TestGenerateHandler_SummaryTrigger(t *testing.T) {
	engine, store, _ := newTestDeps(t)
	ctx := context.Background()
	s := story.NewStory("Lighthouse", "horror")
	require.NoError(t, store.CreateStory(ctx, s))

	// Seed four turns so the generated one is the fifth.
	for i := 0; i < 4; i++ {
		msg := story.Message{ID: uuid.New(), Prompt: "go on", Text: "And on it went.", CreatedAt: time.Now()}
		msg.SetScore(100)
		require.NoError(t, store.AppendMessage(ctx, s.ID, &msg))
	}

	handler := NewGenerateHandler(engine, store, slog.Default())
	w := postJSON(t, handler, "/v1/generate", GenerateRequest{StoryID: s.ID, Prompt: "Continue."})

	require.Equal(t, http.StatusOK, w.Code)
	var resp GenerateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.SummaryUpdated)

	summary, err := store.Summary(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "The crew weathered the storm at the lighthouse.", summary)
}

func TestGenerateHandler_SummaryFailureDoesNotFailTurn(t *testing.T) {
	engine, store, mock := newTestDeps(t)
	ctx := context.Background()
	s := story.NewStory("Lighthouse", "horror")
	require.NoError(t, store.CreateStory(ctx, s))

	for i := 0; i < 4; i++ {
		msg := story.Message{ID: uuid.New(), Prompt: "go on", Text: "And on it went.", CreatedAt: time.Now()}
		msg.SetScore(100)
		require.NoError(t, store.AppendMessage(ctx, s.ID, &msg))
	}

	base := mock.ChatFunc
	mock.ChatFunc = func(ctx context.Context, messages []chat.Message, opts chat.Options) (string, error) {
		if len(messages) > 0 && strings.Contains(messages[0].Content, "rolling summary") {
			return "", assert.AnError
		}
		return base(ctx, messages, opts)
	}

	handler := NewGenerateHandler(engine, store, slog.Default())
	w := postJSON(t, handler, "/v1/generate", GenerateRequest{StoryID: s.ID, Prompt: "Continue."})

	require.Equal(t, http.StatusOK, w.Code)
	var resp GenerateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.SummaryUpdated)
}

func TestGenerateHandler_StoryNotFound(t *testing.T) {
	engine, store, _ := newTestDeps(t)
	handler := NewGenerateHandler(engine, store, slog.Default())

	w := postJSON(t, handler, "/v1/generate", GenerateRequest{StoryID: uuid.New(), Prompt: "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateHandler_Validation(t *testing.T) {
	engine, store, _ := newTestDeps(t)
	handler := NewGenerateHandler(engine, store, slog.Default())

	w := postJSON(t, handler, "/v1/generate", GenerateRequest{Prompt: "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, handler, "/v1/generate", GenerateRequest{StoryID: uuid.New()})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/generate", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGenerateHandler_LLMFailure(t *testing.T) {
	engine, store, mock := newTestDeps(t)
	ctx := context.Background()
	s := story.NewStory("Lighthouse", "horror")
	require.NoError(t, store.CreateStory(ctx, s))

	mock.ChatFunc = func(ctx context.Context, messages []chat.Message, opts chat.Options) (string, error) {
		return "", assert.AnError
	}

	handler := NewGenerateHandler(engine, store, slog.Default())
	w := postJSON(t, handler, "/v1/generate", GenerateRequest{StoryID: s.ID, Prompt: "Begin."})

	assert.Equal(t, http.StatusBadGateway, w.Code)

	// Nothing persisted on failure.
	msgs, err := store.Messages(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
