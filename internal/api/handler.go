package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"streak-bot/internal/leaderboard"
	"streak-bot/internal/logger"
)

type Lister interface {
	List(ctx context.Context, chatID int64) ([]string, error)
}

type Builder interface {
	Build(ctx context.Context, chatID int64) (*leaderboard.Board, error)
}

type Handler struct {
	registry Lister
	board    Builder
}

func NewHandler(registry Lister, board Builder) *Handler {
	return &Handler{registry: registry, board: board}
}

type UsernamesResponse struct {
	ChatID    int64    `json:"chat_id"`
	Usernames []string `json:"usernames"`
}

// Routes mounts the API under the caller's prefix.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/chats/{chatID}/usernames", h.Usernames)
	r.Get("/chats/{chatID}/leaderboard", h.Leaderboard)
	return r
}

func (h *Handler) Usernames(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}

	usernames, err := h.registry.List(r.Context(), chatID)
	if err != nil {
		logger.Error("[api] chat %d: list: %v", chatID, err)
		http.Error(w, "could not load usernames", http.StatusInternalServerError)
		return
	}

	writeJSON(w, UsernamesResponse{ChatID: chatID, Usernames: usernames})
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}

	board, err := h.board.Build(r.Context(), chatID)
	if err != nil {
		logger.Error("[api] chat %d: leaderboard: %v", chatID, err)
		http.Error(w, "could not build leaderboard", http.StatusInternalServerError)
		return
	}

	writeJSON(w, board)
}

func chatIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid chat id", http.StatusBadRequest)
		return 0, false
	}
	return chatID, true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
