package handlers

import (
	"net/http"

	"picturegram-sync/internal/models"
	"picturegram-sync/internal/services"
)

// GalleryHandler serves the principal's local gallery. Entries are addressed
// by position since legacy photos have no ID.
type GalleryHandler struct {
	galleryService *services.GalleryService
	photoService   *services.PhotoService
	likeService    *services.LikeService
}

// NewGalleryHandler creates a new gallery handler
func NewGalleryHandler(
	galleryService *services.GalleryService,
	photoService *services.PhotoService,
	likeService *services.LikeService,
) *GalleryHandler {
	return &GalleryHandler{
		galleryService: galleryService,
		photoService:   photoService,
		likeService:    likeService,
	}
}

type moveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type descriptionRequest struct {
	Description string `json:"description"`
}

// GetGallery handles GET /api/v1/gallery
func (h *GalleryHandler) GetGallery(w http.ResponseWriter, r *http.Request) {
	gallery, err := h.galleryService.Load(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "Failed to load gallery")
		return
	}
	respondJSON(w, http.StatusOK, gallery)
}

// Move handles POST /api/v1/gallery/move
func (h *GalleryHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err, "Invalid request body")
		return
	}
	gallery, err := h.galleryService.Move(r.Context(), req.From, req.To)
	if err != nil {
		respondServiceError(w, r, err, "Failed to move photo")
		return
	}
	respondJSON(w, http.StatusOK, gallery)
}

// AddSamples handles POST /api/v1/gallery/samples
func (h *GalleryHandler) AddSamples(w http.ResponseWriter, r *http.Request) {
	gallery, err := h.galleryService.AddSamples(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "Failed to add sample photos")
		return
	}
	respondJSON(w, http.StatusOK, gallery)
}

// ToggleLike handles POST /api/v1/gallery/{index}/like
func (h *GalleryHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	gallery, photo, ok := h.entry(w, r)
	if !ok {
		return
	}
	res, err := h.likeService.ToggleLike(r.Context(), photo, gallery)
	if err != nil {
		respondServiceError(w, r, err, "Failed to toggle like")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// EditDescription handles PATCH /api/v1/gallery/{index}
func (h *GalleryHandler) EditDescription(w http.ResponseWriter, r *http.Request) {
	var req descriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err, "Invalid request body")
		return
	}
	gallery, photo, ok := h.entry(w, r)
	if !ok {
		return
	}
	if err := h.photoService.EditDescription(r.Context(), photo, req.Description, gallery); err != nil {
		respondServiceError(w, r, err, "Failed to edit description")
		return
	}
	respondJSON(w, http.StatusOK, photo)
}

// Delete handles DELETE /api/v1/gallery/{index}
func (h *GalleryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	gallery, photo, ok := h.entry(w, r)
	if !ok {
		return
	}
	if err := h.photoService.Delete(r.Context(), photo, gallery); err != nil {
		respondServiceError(w, r, err, "Failed to delete photo")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GalleryHandler) entry(w http.ResponseWriter, r *http.Request) (*models.Gallery, *models.Photo, bool) {
	index, err := indexParam(r)
	if err != nil {
		respondServiceError(w, r, err, "Invalid index")
		return nil, nil, false
	}
	gallery, err := h.galleryService.Load(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "Failed to load gallery")
		return nil, nil, false
	}
	photo, err := h.galleryService.Photo(gallery, index)
	if err != nil {
		respondServiceError(w, r, err, "Photo not found")
		return nil, nil, false
	}
	return gallery, photo, true
}
