package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/huddlechat/huddle/internal/auth"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// TokenVerifier validates a bearer token. Implemented by *auth.Service.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

// AuthMiddleware verifies JWT bearer tokens on protected endpoints.
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth rejects requests without a valid Authorization: Bearer token
// and stores the verified claims in the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			jsonError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			jsonError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		claims, err := m.verifier.VerifyToken(token)
		if err != nil {
			jsonError(w, http.StatusForbidden, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetClaimsFromContext retrieves the authenticated identity from the request
// context, or nil if the request was not authenticated.
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}
