package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cwrk-planet/presence-service/internal/postgres"
	"github.com/cwrk-planet/presence-service/internal/relay"
	"github.com/cwrk-planet/presence-service/internal/service"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	historySvc *service.HistoryService // nil — сервис работает без хранилища
	core       *relay.Core
}

func NewHandler(history *service.HistoryService, core *relay.Core) *Handler {
	return &Handler{
		historySvc: history,
		core:       core,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageItem struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	SenderName     string    `json:"senderName"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

type HistoryResponse struct {
	Items      []MessageItem `json:"items"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /conversations/{id}/messages?limit=&cursor=
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.historySvc == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "history store disabled"})
		return
	}

	conversationID := chi.URLParam(r, "id")
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	cursor := r.URL.Query().Get("cursor")

	msgs, next, err := h.historySvc.History(r.Context(), conversationID, cursor, limit)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		slog.Error("handler.GetHistory:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := HistoryResponse{Items: make([]MessageItem, 0, len(msgs)), NextCursor: next}
	for _, m := range msgs {
		resp.Items = append(resp.Items, MessageItem{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			SenderID:       m.SenderID,
			SenderName:     m.SenderName,
			Content:        m.Body,
			CreatedAt:      m.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.Stats())
}
