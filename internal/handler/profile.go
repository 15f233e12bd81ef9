package handler

import (
	"net/http"

	"github.com/msomdec/spacebook/internal/domain"
	"github.com/msomdec/spacebook/internal/service"
)

// ProfileHandler serves the signed-in user's profile.
type ProfileHandler struct {
	auth *service.AuthService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(auth *service.AuthService) *ProfileHandler {
	return &ProfileHandler{auth: auth}
}

// HandleGet reloads the profile from the profile table.
// GET /api/profile
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.auth.RefreshProfile(r.Context())
	if err != nil {
		writeServiceError(w, "refresh profile", err)
		return
	}
	writeOK(w, http.StatusOK, "", p)
}

// HandlePatch updates the given profile fields.
// PATCH /api/profile
// Request: {"firstName":"...","lastName":"...","phone":"...","email":"..."} (all optional)
func (h *ProfileHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProfilePatch
	if err := readJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	p, err := h.auth.UpdateProfile(r.Context(), patch)
	if err != nil {
		writeServiceError(w, "update profile", err)
		return
	}
	writeOK(w, http.StatusOK, "Profile updated.", p)
}
