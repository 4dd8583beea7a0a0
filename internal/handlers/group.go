package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/huddlechat/huddle/internal/chat"
)

// GroupUpdateRequest mutates fields of the shared group metadata. Omitted
// fields are left untouched.
type GroupUpdateRequest struct {
	Name *string `json:"name,omitempty"`
	Icon *string `json:"icon,omitempty"`
}

// GetGroup returns the current group metadata.
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, h.hub.Group())
}

// UpdateGroup applies last-write-wins updates to the group name and icon and
// triggers a broadcast to every connected session per changed field.
func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	var req GroupUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Name == nil && req.Icon == nil {
		h.Error(w, http.StatusBadRequest, "nothing to update")
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			h.Error(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		if err := h.hub.UpdateGroup(r.Context(), chat.GroupFieldName, name); err != nil {
			h.groupUpdateError(w, err)
			return
		}
	}

	if req.Icon != nil {
		if err := h.hub.UpdateGroup(r.Context(), chat.GroupFieldIcon, *req.Icon); err != nil {
			h.groupUpdateError(w, err)
			return
		}
	}

	h.JSON(w, http.StatusOK, h.hub.Group())
}

func (h *Handler) groupUpdateError(w http.ResponseWriter, err error) {
	if errors.Is(err, chat.ErrUnknownGroupField) {
		h.Error(w, http.StatusBadRequest, "unknown group field")
		return
	}
	h.logger.Error().Err(err).Msg("group update failed")
	h.Error(w, http.StatusInternalServerError, "group update failed")
}
