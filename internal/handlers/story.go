package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fableloom/fableloom/pkg/narrative"
	"github.com/fableloom/fableloom/pkg/story"
	"github.com/fableloom/fableloom/pkg/storage"
)

type StoryHandler struct {
	store  storage.StoryStore
	logger *slog.Logger
}

func NewStoryHandler(store storage.StoryStore, logger *slog.Logger) *StoryHandler {
	return &StoryHandler{
		store:  store,
		logger: logger,
	}
}

type CreateStoryRequest struct {
	Name  string `json:"name"`
	Genre string `json:"genre,omitempty"`
}

type StoryResponse struct {
	*story.Story
	GenreProfile string `json:"genre_profile"`
}

func storyResponse(s *story.Story) StoryResponse {
	return StoryResponse{
		Story:        s,
		GenreProfile: narrative.NormalizeGenre(s.Genre).String(),
	}
}

// ServeHTTP handles story CRUD and the per-story read endpoints.
// Routes:
// POST   /v1/stories               - Create story
// GET    /v1/stories               - List stories
// GET    /v1/stories/{id}          - Read story
// PUT    /v1/stories/{id}          - Update story name/genre
// DELETE /v1/stories/{id}          - Delete story and its logs
// GET    /v1/stories/{id}/messages - Read the message log
// GET    /v1/stories/{id}/hints    - Read the hint log
func (h *StoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/stories")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodPost:
			h.handleCreate(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST, GET")
		}
		return
	}

	parts := strings.SplitN(path, "/", 2)
	storyID, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid story ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid story ID format")
		return
	}

	if len(parts) == 2 {
		if r.Method != http.MethodGet {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
			return
		}
		switch parts[1] {
		case "messages":
			h.handleMessages(w, r, storyID)
		case "hints":
			h.handleHints(w, r, storyID)
		default:
			writeError(w, h.logger, http.StatusNotFound, "Not found")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleRead(w, r, storyID)
	case http.MethodPut:
		h.handleUpdate(w, r, storyID)
	case http.MethodDelete:
		h.handleDelete(w, r, storyID)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, PUT, DELETE")
	}
}

func (h *StoryHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	s := story.NewStory(req.Name, req.Genre)
	if err := s.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.CreateStory(r.Context(), s); err != nil {
		h.logger.Error("Failed to create story", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create story")
		return
	}

	h.logger.Info("Story created", "story_id", s.ID, "genre", s.Genre)
	writeJSON(w, h.logger, http.StatusCreated, storyResponse(s))
}

func (h *StoryHandler) handleList(w http.ResponseWriter, r *http.Request) {
	stories, err := h.store.ListStories(r.Context())
	if err != nil {
		h.logger.Error("Failed to list stories", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list stories")
		return
	}

	out := make([]StoryResponse, 0, len(stories))
	for _, s := range stories {
		out = append(out, storyResponse(s))
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

func (h *StoryHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	s, err := h.store.GetStory(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load story", "story_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load story")
		return
	}
	if s == nil {
		writeError(w, h.logger, http.StatusNotFound, "Story not found")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, storyResponse(s))
}

func (h *StoryHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	s, err := h.store.GetStory(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load story", "story_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load story")
		return
	}
	if s == nil {
		writeError(w, h.logger, http.StatusNotFound, "Story not found")
		return
	}

	var req CreateStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name != "" {
		s.Name = req.Name
	}
	if req.Genre != "" {
		s.Genre = req.Genre
	}
	s.UpdatedAt = time.Now()

	if err := s.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.UpdateStory(r.Context(), s); err != nil {
		h.logger.Error("Failed to update story", "story_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to update story")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, storyResponse(s))
}

func (h *StoryHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.store.DeleteStory(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, h.logger, http.StatusNotFound, "Story not found")
			return
		}
		h.logger.Error("Failed to delete story", "story_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete story")
		return
	}
	h.logger.Info("Story deleted", "story_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *StoryHandler) handleMessages(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	msgs, err := h.store.Messages(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load messages", "story_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load messages")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, msgs)
}

func (h *StoryHandler) handleHints(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	hints, err := h.store.Hints(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load hints", "story_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load hints")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, hints)
}
