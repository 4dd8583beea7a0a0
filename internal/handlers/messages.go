package handlers

import (
	"net/http"
	"strconv"

	"github.com/huddlechat/huddle/internal/models"
)

// MessagesResponse represents the recent messages response.
type MessagesResponse struct {
	Messages []models.Message `json:"messages"`
}

// Messages returns the newest persisted messages inside the retention
// window, oldest first. This is the HTTP twin of the realtime history
// replay, for clients that poll instead of connecting.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	limit := 150
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	messages, err := h.messages.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch messages")
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}

	if messages == nil {
		messages = []models.Message{}
	}
	h.JSON(w, http.StatusOK, MessagesResponse{Messages: messages})
}
