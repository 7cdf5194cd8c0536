package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fableloom/fableloom/pkg/chat"
	"github.com/fableloom/fableloom/pkg/story"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// flattenTurns converts stored story messages into alternating user and
// assistant chat messages, most recent turns last. window limits the number
// of stored messages included; zero or negative means all.
func flattenTurns(msgs []story.Message, window int) []chat.Message {
	if window > 0 && len(msgs) > window {
		msgs = msgs[len(msgs)-window:]
	}
	out := make([]chat.Message, 0, 2*len(msgs))
	for _, m := range msgs {
		out = append(out, chat.User(m.Prompt), chat.Assistant(m.Text))
	}
	return out
}

// previousScore returns the stability score of the most recent segment, or
// the optimistic maximum when the story has no segments yet.
func previousScore(msgs []story.Message) int {
	if len(msgs) == 0 {
		return story.MaxNSI
	}
	return msgs[len(msgs)-1].Score()
}

func hintTexts(hints []story.Hint) []string {
	out := make([]string, 0, len(hints))
	for _, h := range hints {
		out = append(out, h.Text)
	}
	return out
}
