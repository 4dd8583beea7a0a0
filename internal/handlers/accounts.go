package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/huddlechat/huddle/internal/auth"
	"github.com/huddlechat/huddle/internal/metrics"
	"github.com/huddlechat/huddle/internal/store"
)

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned by both registration and login.
type AuthResponse struct {
	Message  string `json:"message,omitempty"`
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Register handles user registration and issues a token on success.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" || req.Password == "" {
		h.Error(w, http.StatusBadRequest, "All fields are required")
		return
	}

	user, token, err := h.auth.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			h.Error(w, http.StatusBadRequest, "Email already exists")
		case errors.Is(err, store.ErrDuplicateUsername):
			h.Error(w, http.StatusBadRequest, "Username already exists")
		case errors.Is(err, auth.ErrInvalidInput):
			h.Error(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Msg("registration failed")
			h.Error(w, http.StatusInternalServerError, "Server error during registration")
		}
		return
	}

	metrics.UsersRegistered.Inc()

	h.JSON(w, http.StatusCreated, AuthResponse{
		Message:  "User registered",
		Token:    token,
		Username: user.Username,
	})
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles credential authentication and token issuance. An unknown
// email and a wrong password are indistinguishable to the caller.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.Error(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.Error().Err(err).Msg("login failed")
		h.Error(w, http.StatusInternalServerError, "Server error")
		return
	}

	h.JSON(w, http.StatusOK, AuthResponse{
		Token:    token,
		Username: user.Username,
	})
}
