package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/fableloom/fableloom/pkg/narrative"
	"github.com/fableloom/fableloom/pkg/story"
	"github.com/fableloom/fableloom/pkg/storage"
)

// RefineHandler rewrites one existing segment in place. Context for the
// rewrite comes only from story state before the target segment, so the
// refined text cannot leak knowledge of later turns.
type RefineHandler struct {
	engine *narrative.Engine
	store  storage.StoryStore
	logger *slog.Logger
}

func NewRefineHandler(engine *narrative.Engine, store storage.StoryStore, logger *slog.Logger) *RefineHandler {
	return &RefineHandler{
		engine: engine,
		store:  store,
		logger: logger,
	}
}

type RefineRequest struct {
	StoryID     uuid.UUID `json:"story_id"`
	MessageID   uuid.UUID `json:"message_id"`
	Instruction string    `json:"instruction"`
}

type RefineResponse struct {
	Message        story.Message         `json:"message"`
	StabilityScore int                   `json:"stability_score"`
	Violations     story.ViolationReport `json:"violations"`
}

func (h *RefineHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
		return
	}

	var req RefineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.StoryID == uuid.Nil || req.MessageID == uuid.Nil {
		writeError(w, h.logger, http.StatusBadRequest, "story_id and message_id are required")
		return
	}
	if req.Instruction == "" {
		writeError(w, h.logger, http.StatusBadRequest, "instruction is required")
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

	targetIdx := -1
	for i := range msgs {
		if msgs[i].ID == req.MessageID {
			targetIdx = i
			break
		}
	}
	if targetIdx == -1 {
		writeError(w, h.logger, http.StatusNotFound, "Message not found")
		return
	}
	target := msgs[targetIdx]
	prior := msgs[:targetIdx]

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

	// Hints derived from the target or from later segments must not leak
	// into the rewrite; keep only hints belonging to prior segments.
	priorIDs := make(map[uuid.UUID]struct{}, len(prior))
	for _, m := range prior {
		priorIDs[m.ID] = struct{}{}
	}
	priorHints := make([]story.Hint, 0, len(hints))
	for _, hint := range hints {
		if _, ok := priorIDs[hint.MessageID]; ok {
			priorHints = append(priorHints, hint)
		}
	}

	params := h.engine.Params()
	result, err := h.engine.Refine(ctx, req.StoryID, target.Text, req.Instruction, narrative.Request{
		Genre:       s.Genre,
		History:     flattenTurns(prior, params.HistoryWindow),
		Summary:     summary,
		Hints:       hintTexts(priorHints),
		PreviousNSI: previousScore(prior),
		WorldRules:  rules,
	})
	if err != nil {
		h.logger.Error("Refinement failed", "story_id", req.StoryID, "message_id", req.MessageID, "error", err)
		writeError(w, h.logger, http.StatusBadGateway, "Refinement failed")
		return
	}

	target.Text = result.Text
	target.Hint = result.Hint
	target.SetScore(result.Score)
	if err := h.store.UpdateMessage(ctx, req.StoryID, &target); err != nil {
		h.logger.Error("Failed to persist refined message", "story_id", req.StoryID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to persist refined message")
		return
	}
	if result.UpdatedRules != rules {
		if err := h.store.SetWorldRules(ctx, req.StoryID, result.UpdatedRules); err != nil {
			h.logger.Error("Failed to persist world rules", "story_id", req.StoryID, "error", err)
		}
	}

	h.logger.Info("Segment refined",
		"story_id", req.StoryID,
		"message_id", req.MessageID,
		"stability_score", result.Score)

	writeJSON(w, h.logger, http.StatusOK, RefineResponse{
		Message:        target,
		StabilityScore: result.Score,
		Violations:     result.Report,
	})
}
