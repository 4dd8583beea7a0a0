package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlechat/huddle/internal/auth"
	"github.com/huddlechat/huddle/internal/chat"
	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/moderation"
	"github.com/huddlechat/huddle/internal/store"
)

type testEnv struct {
	h        *Handler
	hub      *chat.Hub
	messages *store.MemoryMessageStore
	themes   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := store.NewMemoryUserStore()
	messages := store.NewMemoryMessageStore()
	svc := auth.NewService(users, []byte("test-secret"))
	hub := chat.NewHub(zerolog.Nop(), messages, moderation.NewFilter(nil), svc, 150)

	uploads := t.TempDir()
	themes := t.TempDir()

	return &testEnv{
		h:        NewHandler(svc, users, messages, hub, zerolog.Nop(), uploads, themes),
		hub:      hub,
		messages: messages,
		themes:   themes,
	}
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(out))
}

func TestRegisterHandler(t *testing.T) {
	env := newTestEnv(t)

	rr := doJSON(t, env.h.Register, http.MethodPost, "/api/register", RegisterRequest{
		Email: "alice@example.com", Username: "alice", Password: "password123",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp AuthResponse
	decodeBody(t, rr, &resp)
	assert.Equal(t, "User registered", resp.Message)
	assert.Equal(t, "alice", resp.Username)
	require.NotEmpty(t, resp.Token)

	claims, err := env.h.Verifier().VerifyToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestRegisterHandlerRejections(t *testing.T) {
	env := newTestEnv(t)

	rr := doJSON(t, env.h.Register, http.MethodPost, "/api/register", RegisterRequest{
		Email: "alice@example.com", Username: "alice", Password: "password123",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	tests := []struct {
		name    string
		req     RegisterRequest
		status  int
		wantErr string
	}{
		{
			"duplicate email",
			RegisterRequest{Email: "alice@example.com", Username: "bob", Password: "password123"},
			http.StatusBadRequest, "Email already exists",
		},
		{
			"duplicate username",
			RegisterRequest{Email: "bob@example.com", Username: "alice", Password: "password123"},
			http.StatusBadRequest, "Username already exists",
		},
		{
			"missing fields",
			RegisterRequest{Email: "bob@example.com"},
			http.StatusBadRequest, "All fields are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, env.h.Register, http.MethodPost, "/api/register", tt.req)
			assert.Equal(t, tt.status, rr.Code)

			var body map[string]string
			decodeBody(t, rr, &body)
			assert.Equal(t, tt.wantErr, body["error"])
		})
	}
}

func TestLoginHandler(t *testing.T) {
	env := newTestEnv(t)

	doJSON(t, env.h.Register, http.MethodPost, "/api/register", RegisterRequest{
		Email: "alice@example.com", Username: "alice", Password: "password123",
	})

	rr := doJSON(t, env.h.Login, http.MethodPost, "/api/login", LoginRequest{
		Email: "alice@example.com", Password: "password123",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp AuthResponse
	decodeBody(t, rr, &resp)
	assert.Equal(t, "alice", resp.Username)
	assert.NotEmpty(t, resp.Token)

	// Wrong password and unknown email produce the same response.
	for _, req := range []LoginRequest{
		{Email: "alice@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "password123"},
	} {
		rr := doJSON(t, env.h.Login, http.MethodPost, "/api/login", req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		var body map[string]string
		decodeBody(t, rr, &body)
		assert.Equal(t, "Invalid credentials", body["error"])
	}
}

func TestMessagesHandler(t *testing.T) {
	env := newTestEnv(t)

	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, env.messages.Append(context.Background(), &models.Message{
			Text: text, Username: "alice", Kind: models.KindText,
		}))
	}

	rr := doJSON(t, env.h.Messages, http.MethodGet, "/api/messages", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp MessagesResponse
	decodeBody(t, rr, &resp)
	require.Len(t, resp.Messages, 3)
	assert.Equal(t, "one", resp.Messages[0].Text)

	rr = doJSON(t, env.h.Messages, http.MethodGet, "/api/messages?limit=2", nil)
	decodeBody(t, rr, &resp)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "two", resp.Messages[0].Text)
	assert.Equal(t, "three", resp.Messages[1].Text)
}

func TestMessagesHandlerEmpty(t *testing.T) {
	env := newTestEnv(t)

	rr := doJSON(t, env.h.Messages, http.MethodGet, "/api/messages", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"messages":[]}`, rr.Body.String())
}

func TestGroupHandlers(t *testing.T) {
	env := newTestEnv(t)

	rr := doJSON(t, env.h.GetGroup, http.MethodGet, "/api/group", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var g models.Group
	decodeBody(t, rr, &g)
	assert.Equal(t, "Group Chat", g.Name)

	name := "Weekend Crew"
	icon := "uploads/icon.png"
	rr = doJSON(t, env.h.UpdateGroup, http.MethodPut, "/api/group", GroupUpdateRequest{Name: &name, Icon: &icon})
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &g)
	assert.Equal(t, "Weekend Crew", g.Name)
	assert.Equal(t, "uploads/icon.png", g.IconURL)
	assert.Equal(t, "Weekend Crew", env.hub.Group().Name)

	empty := "  "
	rr = doJSON(t, env.h.UpdateGroup, http.MethodPut, "/api/group", GroupUpdateRequest{Name: &empty})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, env.h.UpdateGroup, http.MethodPut, "/api/group", GroupUpdateRequest{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestThemesHandlers(t *testing.T) {
	env := newTestEnv(t)

	for _, name := range []string{"space.png", "forest.jpg", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(env.themes, name), []byte("x"), 0644))
	}

	rr := doJSON(t, env.h.ListThemes, http.MethodGet, "/api/themes", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp ThemesResponse
	decodeBody(t, rr, &resp)
	require.Len(t, resp.Themes, 2, "non-image files should be skipped")

	rr = doJSON(t, env.h.SetTheme, http.MethodPost, "/api/theme", SetThemeRequest{Path: "themes/space.png"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "themes/space.png", env.hub.Group().BackgroundTheme)

	rr = doJSON(t, env.h.SetTheme, http.MethodPost, "/api/theme", SetThemeRequest{Path: "themes/missing.png"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, env.h.SetTheme, http.MethodPost, "/api/theme", SetThemeRequest{Path: "themes/../secret.png"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadHandler(t *testing.T) {
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.h.Upload(rr, uploadRequest(t, "cat.png", []byte("fake-png-bytes")))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp UploadResponse
	decodeBody(t, rr, &resp)
	assert.True(t, strings.HasPrefix(resp.URL, "uploads/"))
	assert.True(t, strings.HasSuffix(resp.URL, "-cat.png"))

	// The file landed on disk with the returned name.
	stored := filepath.Join(env.h.uploadDir, strings.TrimPrefix(resp.URL, "uploads/"))
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-png-bytes"), data)
}

func TestUploadHandlerRejectsNonImages(t *testing.T) {
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.h.Upload(rr, uploadRequest(t, "script.sh", []byte("#!/bin/sh")))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var body map[string]string
	decodeBody(t, rr, &body)
	assert.Equal(t, "Only image files are allowed", body["error"])
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t)

	rr := doJSON(t, env.h.Health, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp HealthResponse
	decodeBody(t, rr, &resp)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 0, resp.Sessions)
	assert.Equal(t, "pass", resp.Checks["users"].Status)
	assert.Equal(t, "pass", resp.Checks["messages"].Status)
}
