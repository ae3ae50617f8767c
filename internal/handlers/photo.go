package handlers

import (
	"io"
	"net/http"

	"picturegram-sync/internal/errs"
	"picturegram-sync/internal/middleware"
	"picturegram-sync/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const maxUploadSize = 10 << 20

// PhotoHandler handles photo-related HTTP requests
type PhotoHandler struct {
	photoService   *services.PhotoService
	galleryService *services.GalleryService
	likeService    *services.LikeService
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(
	photoService *services.PhotoService,
	galleryService *services.GalleryService,
	likeService *services.LikeService,
) *PhotoHandler {
	return &PhotoHandler{
		photoService:   photoService,
		galleryService: galleryService,
		likeService:    likeService,
	}
}

// ListByAuthor handles GET /api/v1/users/{id}/photos
func (h *PhotoHandler) ListByAuthor(w http.ResponseWriter, r *http.Request) {
	photos, err := h.photoService.ListByAuthor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get photos")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"photos": photos,
		"total":  len(photos),
	})
}

// GetPhoto handles GET /api/v1/photos/{id}
func (h *PhotoHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	photo, err := h.photoService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get photo")
		return
	}
	respondJSON(w, http.StatusOK, photo)
}

// UploadPhoto handles POST /api/v1/photos. The body is multipart with a
// "photo" file and an optional "description" field.
func (h *PhotoHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, "Invalid multipart body", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		respondError(w, "photo file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, "Failed to read photo", http.StatusBadRequest)
		return
	}

	gallery, err := h.galleryService.Load(ctx)
	if err != nil {
		respondServiceError(w, r, err, "Failed to load gallery")
		return
	}

	photo, err := h.photoService.Upload(ctx, data, header.Header.Get("Content-Type"), r.FormValue("description"), gallery)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to upload photo")
		respondServiceError(w, r, err, "Failed to upload photo")
		return
	}

	respondJSON(w, http.StatusCreated, photo)
}

// ToggleLike handles POST /api/v1/photos/{id}/like
func (h *PhotoHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondServiceError(w, r, errs.Validation("photo id is required"), "Invalid photo id")
		return
	}

	res, err := h.likeService.ToggleLikeByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "Failed to toggle like")
		return
	}
	respondJSON(w, http.StatusOK, res)
}
