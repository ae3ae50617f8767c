package handlers

import (
	"net/http"

	"picturegram-sync/internal/services"

	"github.com/go-chi/chi/v5"
)

// FollowHandler exposes the follow graph
type FollowHandler struct {
	followService *services.FollowService
}

// NewFollowHandler creates a new follow handler
func NewFollowHandler(followService *services.FollowService) *FollowHandler {
	return &FollowHandler{followService: followService}
}

// Follow handles POST /api/v1/users/{id}/follow
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	res, err := h.followService.Follow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to follow user")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Unfollow handles DELETE /api/v1/users/{id}/follow
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	res, err := h.followService.Unfollow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to unfollow user")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Status handles GET /api/v1/users/{id}/follow
func (h *FollowHandler) Status(w http.ResponseWriter, r *http.Request) {
	res, err := h.followService.IsFollowing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to read follow status")
		return
	}
	respondJSON(w, http.StatusOK, res)
}
