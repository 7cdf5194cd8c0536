package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fableloom/fableloom/pkg/narrative"
	"github.com/fableloom/fableloom/pkg/story"
	"github.com/fableloom/fableloom/pkg/storage"
)

// GenerateHandler drives one story turn: it assembles the narrative context
// from the store, calls the engine, and persists everything the turn
// produced (segment, hint, merged rules, and the periodic summary).
type GenerateHandler struct {
	engine *narrative.Engine
	store  storage.StoryStore
	logger *slog.Logger
}

func NewGenerateHandler(engine *narrative.Engine, store storage.StoryStore, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{
		engine: engine,
		store:  store,
		logger: logger,
	}
}

type GenerateRequest struct {
	StoryID uuid.UUID `json:"story_id"`
	Prompt  string    `json:"prompt"`
}

type GenerateResponse struct {
	Message        story.Message         `json:"message"`
	StabilityScore int                   `json:"stability_score"`
	Violations     story.ViolationReport `json:"violations"`
	SummaryUpdated bool                  `json:"summary_updated"`
}

func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.StoryID == uuid.Nil {
		writeError(w, h.logger, http.StatusBadRequest, "story_id is required")
		return
	}
	if req.Prompt == "" {
		writeError(w, h.logger, http.StatusBadRequest, "prompt is required")
		return
	}

	ctx := r.Context()

	s, err := h.store.GetStory(ctx, req.StoryID)
	if err != nil {
		h.logger.Error("Failed to load story", "story_id", req.StoryID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load story")
		return
	}
	if s == nil {
		writeError(w, h.logger, http.StatusNotFound, "Story not found")
		return
	}

	msgs, err := h.store.Messages(ctx, req.StoryID)
	if err != nil {
		h.logger.Error("Failed to load messages", "story_id", req.StoryID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load messages")
		return
	}
	summary, err := h.store.Summary(ctx, req.StoryID)
	if err != nil {
		h.logger.Error("Failed to load summary", "story_id", req.StoryID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load summary")
		return
	}
	rules, err := h.store.WorldRules(ctx, req.StoryID)
	if err != nil {
		h.logger.Error("Failed to load world rules", "story_id", req.StoryID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load world rules")
		return
	}
	hints, err := h.store.Hints(ctx, req.StoryID)
	if err != nil {
		h.logger.Error("Failed to load hints", "story_id", req.StoryID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load hints")
		return
	}

	params := h.engine.Params()
	result, err := h.engine.Generate(ctx, req.StoryID, narrative.Request{
		Prompt:      req.Prompt,
		Genre:       s.Genre,
		History:     flattenTurns(msgs, params.HistoryWindow),
		Summary:     summary,
		Hints:       hintTexts(hints),
		PreviousNSI: previousScore(msgs),
		WorldRules:  rules,
	})
	if err != nil {
		h.logger.Error("Generation failed", "story_id", req.StoryID, "error", err)
		writeError(w, h.logger, http.StatusBadGateway, "Generation failed")
		return
	}

	msg := story.Message{
		ID:        uuid.New(),
		Prompt:    req.Prompt,
		Text:      result.Text,
		Hint:      result.Hint,
		CreatedAt: time.Now(),
	}
	msg.SetScore(result.Score)
	if err := h.store.AppendMessage(ctx, req.StoryID, &msg); err != nil {
		h.logger.Error("Failed to persist message", "story_id", req.StoryID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to persist message")
		return
	}
	if msg.Hint != "" {
		if err := h.store.AppendHint(ctx, req.StoryID, story.Hint{
			Text:      msg.Hint,
			MessageID: msg.ID,
			CreatedAt: msg.CreatedAt,
		}); err != nil {
			h.logger.Error("Failed to persist hint", "story_id", req.StoryID, "error", err)
		}
	}
	if result.UpdatedRules != rules {
		if err := h.store.SetWorldRules(ctx, req.StoryID, result.UpdatedRules); err != nil {
			h.logger.Error("Failed to persist world rules", "story_id", req.StoryID, "error", err)
		}
	}
	s.UpdatedAt = time.Now()
	if err := h.store.UpdateStory(ctx, s); err != nil {
		h.logger.Error("Failed to touch story", "story_id", req.StoryID, "error", err)
	}

	summaryUpdated := h.maybeSummarize(r, req.StoryID, summary)

	h.logger.Info("Turn generated",
		"story_id", req.StoryID,
		"message_id", msg.ID,
		"stability_score", result.Score,
		"summary_updated", summaryUpdated)

	writeJSON(w, h.logger, http.StatusOK, GenerateResponse{
		Message:        msg,
		StabilityScore: result.Score,
		Violations:     result.Report,
		SummaryUpdated: summaryUpdated,
	})
}

// maybeSummarize runs the periodic summary rewrite when the message count
// hits the interval. Summary failure is logged and swallowed; the turn
// itself already succeeded.
func (h *GenerateHandler) maybeSummarize(r *http.Request, storyID uuid.UUID, currentSummary string) bool {
	ctx := r.Context()

	msgs, err := h.store.Messages(ctx, storyID)
	if err != nil {
		h.logger.Error("Failed to reload messages for summary check", "story_id", storyID, "error", err)
		return false
	}
	if !h.engine.ShouldSummarize(len(msgs)) {
		return false
	}

	turns := flattenTurns(msgs, h.engine.Params().SummaryBatch)
	newSummary, err := h.engine.Summarize(ctx, storyID, turns, currentSummary)
	if err != nil {
		h.logger.Error("Summarization failed", "story_id", storyID, "error", err)
		return false
	}
	if err := h.store.SetSummary(ctx, storyID, newSummary); err != nil {
		h.logger.Error("Failed to persist summary", "story_id", storyID, "error", err)
		return false
	}
	return true
}
