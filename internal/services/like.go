package services

import (
	"context"
	"fmt"
	"slices"

	"picturegram-sync/internal/errs"
	"picturegram-sync/internal/metrics"
	"picturegram-sync/internal/models"

	"github.com/rs/zerolog/log"
)

// LikeResult is the state of a photo after a toggle
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// LikeService toggles likes on photos
type LikeService struct {
	photos        PhotoStore
	cache         PhotoCache
	identity      Identity
	notifier      Notifier
	allowSelfLike bool
}

// NewLikeService creates a new like service
func NewLikeService(photos PhotoStore, cache PhotoCache, identity Identity, notifier Notifier, allowSelfLike bool) *LikeService {
	return &LikeService{
		photos:        photos,
		cache:         cache,
		identity:      identity,
		notifier:      notifier,
		allowSelfLike: allowSelfLike,
	}
}

// ToggleLike flips the principal's like on photo.
//
// A legacy photo is changed in memory and the gallery is saved. For a synced
// photo the stored record decides whether this is a like or an unlike; the
// local copy may be stale. photo and gallery are updated only after the store
// acknowledged both primitives. gallery may be nil for photos that are not
// part of the principal's gallery.
func (s *LikeService) ToggleLike(ctx context.Context, photo *models.Photo, gallery *models.Gallery) (*LikeResult, error) {
	p, ok := s.identity.CurrentPrincipal(ctx)
	if !ok {
		return nil, errs.ErrUnauthenticated
	}
	if photo == nil {
		return nil, errs.Validation("photo is required")
	}
	if !s.allowSelfLike && s.isOwnPhoto(photo, p) {
		return nil, errs.Validation("liking your own photo is disabled")
	}

	if photo.IsLegacy() {
		username := p.DisplayName
		liked := photo.IsLikedBy(username)
		photo.SetLiked(username, !liked)
		if err := s.save(gallery); err != nil {
			photo.SetLiked(username, liked)
			metrics.LikeToggles.WithLabelValues("local", "error").Inc()
			return nil, err
		}
		metrics.LikeToggles.WithLabelValues("local", "ok").Inc()
		return &LikeResult{Liked: !liked, LikeCount: photo.LikeCount}, nil
	}

	stored, err := s.photos.GetByID(ctx, photo.ID)
	if err != nil {
		return nil, errs.Remote(err)
	}
	return s.toggleSynced(ctx, p, stored, photo, gallery)
}

// ToggleLikeByID reads the photo from the store and toggles it. When the
// photo is also in the principal's gallery, that entry is updated too.
func (s *LikeService) ToggleLikeByID(ctx context.Context, photoID string) (*LikeResult, error) {
	p, ok := s.identity.CurrentPrincipal(ctx)
	if !ok {
		return nil, errs.ErrUnauthenticated
	}
	if photoID == "" {
		return nil, errs.Validation("photo id is required")
	}
	stored, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, errs.Remote(err)
	}
	if !s.allowSelfLike && s.isOwnPhoto(stored, p) {
		return nil, errs.Validation("liking your own photo is disabled")
	}

	gallery, local := s.galleryEntry(p.ID, photoID)
	if local == nil {
		local = stored
	}
	return s.toggleSynced(ctx, p, stored, local, gallery)
}

// toggleSynced applies the toggle computed from stored and mirrors the
// committed state into local.
func (s *LikeService) toggleSynced(ctx context.Context, p models.Principal, stored, local *models.Photo, gallery *models.Gallery) (*LikeResult, error) {
	username := p.DisplayName
	liked := stored.IsLikedBy(username)

	if err := s.applyRemote(ctx, stored.ID, username, !liked); err != nil {
		metrics.LikeToggles.WithLabelValues("remote", "error").Inc()
		log.Error().
			Err(err).
			Str("photo_id", stored.ID).
			Str("user", username).
			Msg("Failed to toggle like")
		return nil, errs.Remote(err)
	}
	metrics.LikeToggles.WithLabelValues("remote", "ok").Inc()

	stored.SetLiked(username, !liked)
	if local != stored {
		local.LikedBy = slices.Clone(stored.LikedBy)
		local.LikeCount = stored.LikeCount
	}
	if gallery != nil {
		if err := s.save(gallery); err != nil {
			log.Warn().Err(err).Str("photo_id", stored.ID).Msg("Like committed but gallery cache not updated")
		}
	}

	if !liked && !s.isOwnPhoto(stored, p) {
		s.notifier.Notify(ctx, models.KindLike, username, recipientOf(stored))
	}

	return &LikeResult{Liked: !liked, LikeCount: stored.LikeCount}, nil
}

// galleryEntry finds photoID in ownerID's cached gallery. A cache that
// cannot be read is treated as not holding the photo.
func (s *LikeService) galleryEntry(ownerID, photoID string) (*models.Gallery, *models.Photo) {
	photos, err := s.cache.Load(ownerID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", ownerID).Msg("Failed to read gallery cache")
		return nil, nil
	}
	for _, photo := range photos {
		if photo.ID == photoID {
			return &models.Gallery{OwnerID: ownerID, Photos: photos}, photo
		}
	}
	return nil, nil
}

// applyRemote sends the membership primitive and then the counter delta.
// The two are not atomic.
func (s *LikeService) applyRemote(ctx context.Context, photoID, username string, like bool) error {
	if like {
		if err := s.photos.AddLiker(ctx, photoID, username); err != nil {
			return fmt.Errorf("add liker: %w", err)
		}
		if err := s.photos.IncrementLikeCount(ctx, photoID, 1); err != nil {
			return fmt.Errorf("increment like count: %w", err)
		}
		return nil
	}
	if err := s.photos.RemoveLiker(ctx, photoID, username); err != nil {
		return fmt.Errorf("remove liker: %w", err)
	}
	if err := s.photos.IncrementLikeCount(ctx, photoID, -1); err != nil {
		return fmt.Errorf("decrement like count: %w", err)
	}
	return nil
}

func (s *LikeService) save(gallery *models.Gallery) error {
	if gallery == nil {
		return nil
	}
	return s.cache.Save(gallery.OwnerID, gallery.Photos)
}

func (s *LikeService) isOwnPhoto(photo *models.Photo, p models.Principal) bool {
	return photo.IsAuthor(p.ID) || (photo.AuthorName != "" && photo.AuthorName == p.DisplayName)
}

// recipientOf returns the username notifications about photo go to.
func recipientOf(photo *models.Photo) string {
	if photo.AuthorName != "" {
		return photo.AuthorName
	}
	return photo.AuthorID
}
