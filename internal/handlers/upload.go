package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/huddlechat/huddle/internal/metrics"
)

const maxUploadSize = 5 * 1024 * 1024 // 5MB

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// UploadResponse carries the stored file URL back to the uploader.
type UploadResponse struct {
	URL string `json:"url"`
}

// Upload stores an image from a multipart form and returns its URL, to be
// referenced by a subsequent image chat message.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.Error(w, http.StatusBadRequest, "file too large or malformed form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		h.Error(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExts[ext] {
		h.Error(w, http.StatusBadRequest, "Only image files are allowed")
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		h.logger.Error().Err(err).Msg("failed to create upload directory")
		h.Error(w, http.StatusInternalServerError, "Error uploading file")
		return
	}

	// Timestamp prefix avoids collisions; the base name is kept for
	// readability but stripped of any path components.
	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), filepath.Base(header.Filename))
	dst, err := os.Create(filepath.Join(h.uploadDir, name))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create upload file")
		h.Error(w, http.StatusInternalServerError, "Error uploading file")
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		h.logger.Error().Err(err).Msg("failed to write upload file")
		h.Error(w, http.StatusInternalServerError, "Error uploading file")
		return
	}

	metrics.ImagesUploaded.Inc()

	h.JSON(w, http.StatusOK, UploadResponse{URL: "uploads/" + name})
}
