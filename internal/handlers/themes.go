package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Theme describes one selectable background theme.
type Theme struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// ThemesResponse lists the available background themes.
type ThemesResponse struct {
	Themes []Theme `json:"themes"`
}

// ListThemes scans the themes directory for selectable backgrounds.
func (h *Handler) ListThemes(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(h.themesDir)
	if err != nil {
		if os.IsNotExist(err) {
			h.JSON(w, http.StatusOK, ThemesResponse{Themes: []Theme{}})
			return
		}
		h.logger.Error().Err(err).Msg("failed to read themes directory")
		h.Error(w, http.StatusInternalServerError, "failed to list themes")
		return
	}

	themes := make([]Theme, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !allowedImageExts[ext] {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ext)
		themes = append(themes, Theme{
			Name: name,
			Path: "themes/" + entry.Name(),
		})
	}

	h.JSON(w, http.StatusOK, ThemesResponse{Themes: themes})
}

// SetThemeRequest selects the shared background theme.
type SetThemeRequest struct {
	Path string `json:"path"`
}

// SetTheme validates the selected theme exists and broadcasts the change to
// every connected session.
func (h *Handler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req SetThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	name := filepath.Base(req.Path)
	if req.Path != "themes/"+name || name == "." || name == "/" {
		h.Error(w, http.StatusBadRequest, "invalid theme path")
		return
	}

	if _, err := os.Stat(filepath.Join(h.themesDir, name)); err != nil {
		h.Error(w, http.StatusNotFound, "theme not found")
		return
	}

	h.hub.SetTheme(r.Context(), req.Path)

	h.JSON(w, http.StatusOK, h.hub.Group())
}
