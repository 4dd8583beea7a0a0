package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/huddlechat/huddle/internal/auth"
	"github.com/huddlechat/huddle/internal/chat"
	"github.com/huddlechat/huddle/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	auth      *auth.Service
	users     store.UserStore
	messages  store.MessageStore
	hub       *chat.Hub
	logger    zerolog.Logger
	uploadDir string
	themesDir string
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(authSvc *auth.Service, users store.UserStore, messages store.MessageStore, hub *chat.Hub, logger zerolog.Logger, uploadDir, themesDir string) *Handler {
	return &Handler{
		auth:      authSvc,
		users:     users,
		messages:  messages,
		hub:       hub,
		logger:    logger,
		uploadDir: uploadDir,
		themesDir: themesDir,
	}
}

// Verifier exposes the token verifier for middleware wiring.
func (h *Handler) Verifier() *auth.Service {
	return h.auth
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
