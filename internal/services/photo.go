package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"picturegram-sync/internal/errs"
	"picturegram-sync/internal/metrics"
	"picturegram-sync/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const uploadFallbackBody = "Check out their latest upload!"

// PhotoService handles photo upload, editing and deletion
type PhotoService struct {
	photos      PhotoStore
	users       UserStore
	blobs       BlobStore
	cache       PhotoCache
	push        PushGateway
	identity    Identity
	pushTimeout time.Duration

	wg sync.WaitGroup
}

// NewPhotoService creates a new photo service
func NewPhotoService(
	photos PhotoStore,
	users UserStore,
	blobs BlobStore,
	cache PhotoCache,
	push PushGateway,
	identity Identity,
	pushTimeout time.Duration,
) *PhotoService {
	return &PhotoService{
		photos:      photos,
		users:       users,
		blobs:       blobs,
		cache:       cache,
		push:        push,
		identity:    identity,
		pushTimeout: pushTimeout,
	}
}

// Upload stores the bytes, creates the photo record and appends the photo
// to gallery. Followers of the author are alerted in the background.
func (s *PhotoService) Upload(ctx context.Context, data []byte, contentType, description string, gallery *models.Gallery) (*models.Photo, error) {
	p, ok := s.identity.CurrentPrincipal(ctx)
	if !ok {
		return nil, errs.ErrUnauthenticated
	}
	if len(data) == 0 {
		return nil, errs.Validation("photo data is required")
	}

	url, err := s.blobs.Upload(ctx, data, contentType)
	if err != nil {
		return nil, errs.Remote(err)
	}

	photo := &models.Photo{
		ID:          uuid.New().String(),
		AuthorID:    p.ID,
		AuthorName:  p.DisplayName,
		Media:       models.MediaRef{URL: url},
		Description: description,
		LikedBy:     []string{},
		CreatedAt:   time.Now(),
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		if delErr := s.blobs.Delete(ctx, url); delErr != nil {
			log.Warn().Err(delErr).Str("url", url).Msg("Failed to remove blob of unsaved photo")
		}
		return nil, errs.Remote(err)
	}

	if gallery != nil {
		gallery.Photos = append(gallery.Photos, photo)
		if err := s.cache.Save(gallery.OwnerID, gallery.Photos); err != nil {
			log.Warn().Err(err).Str("photo_id", photo.ID).Msg("Photo uploaded but gallery cache not updated")
		}
	}

	s.alertFollowers(ctx, p, photo)

	log.Info().
		Str("user_id", p.ID).
		Str("photo_id", photo.ID).
		Msg("Photo uploaded")

	return photo, nil
}

// EditDescription changes the description of a photo owned by the principal
func (s *PhotoService) EditDescription(ctx context.Context, photo *models.Photo, description string, gallery *models.Gallery) error {
	if err := s.checkOwner(ctx, photo, gallery); err != nil {
		return err
	}

	if photo.IsLegacy() {
		previous := photo.Description
		photo.Description = description
		if err := s.cache.Save(gallery.OwnerID, gallery.Photos); err != nil {
			photo.Description = previous
			return err
		}
		return nil
	}

	if err := s.photos.UpdateDescription(ctx, photo.ID, description); err != nil {
		return errs.Remote(err)
	}
	photo.Description = description
	if gallery != nil {
		if err := s.cache.Save(gallery.OwnerID, gallery.Photos); err != nil {
			log.Warn().Err(err).Str("photo_id", photo.ID).Msg("Description saved but gallery cache not updated")
		}
	}
	return nil
}

// Delete removes the blob, then the record, then the gallery entry. A blob
// that cannot be removed is left behind.
func (s *PhotoService) Delete(ctx context.Context, photo *models.Photo, gallery *models.Gallery) error {
	if err := s.checkOwner(ctx, photo, gallery); err != nil {
		return err
	}

	if !photo.IsLegacy() {
		if photo.Media.URL != "" {
			if err := s.blobs.Delete(ctx, photo.Media.URL); err != nil {
				log.Warn().Err(err).Str("photo_id", photo.ID).Msg("Failed to delete photo blob")
			}
		}
		if err := s.photos.Delete(ctx, photo.ID); err != nil {
			return errs.Remote(fmt.Errorf("failed to delete photo record: %w", err))
		}
	}

	if gallery != nil && gallery.Remove(photo) {
		if err := s.cache.Save(gallery.OwnerID, gallery.Photos); err != nil {
			if photo.IsLegacy() {
				return err
			}
			log.Warn().Err(err).Str("photo_id", photo.ID).Msg("Photo deleted but gallery cache not updated")
		}
	}
	return nil
}

// Get returns a photo by ID
func (s *PhotoService) Get(ctx context.Context, id string) (*models.Photo, error) {
	photo, err := s.photos.GetByID(ctx, id)
	if err != nil {
		return nil, errs.Remote(err)
	}
	return photo, nil
}

// ListByAuthor returns the synced photos of a user, newest first
func (s *PhotoService) ListByAuthor(ctx context.Context, authorID string) ([]*models.Photo, error) {
	if authorID == "" {
		return nil, errs.Validation("author id is required")
	}
	photos, err := s.photos.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, errs.Remote(err)
	}
	return photos, nil
}

// Wait blocks until background follower alerts are done.
func (s *PhotoService) Wait() {
	s.wg.Wait()
}

// checkOwner allows the author of a synced photo, or the owner of the
// gallery holding a legacy photo.
func (s *PhotoService) checkOwner(ctx context.Context, photo *models.Photo, gallery *models.Gallery) error {
	p, ok := s.identity.CurrentPrincipal(ctx)
	if !ok {
		return errs.ErrUnauthenticated
	}
	if photo == nil {
		return errs.Validation("photo is required")
	}
	if photo.IsLegacy() {
		if gallery == nil || gallery.OwnerID != p.ID {
			return errs.ErrForbidden
		}
		return nil
	}
	if !photo.IsAuthor(p.ID) {
		return errs.ErrForbidden
	}
	return nil
}

func (s *PhotoService) alertFollowers(ctx context.Context, author models.Principal, photo *models.Photo) {
	title := author.DisplayName + " posted a new photo"
	body := photo.Description
	if body == "" {
		body = uploadFallbackBody
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.pushTimeout)
		defer cancel()

		user, err := s.users.GetByID(ctx, author.ID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", author.ID).Msg("Failed to load followers")
			return
		}
		for _, followerID := range user.Followers {
			follower, err := s.users.GetByID(ctx, followerID)
			if err != nil {
				log.Debug().Err(err).Str("follower_id", followerID).Msg("Skipping follower")
				continue
			}
			err = s.push.ShowLocalNotification(ctx, follower.Name, title, body)
			metrics.PushResults.WithLabelValues(metrics.Result(err)).Inc()
		}
	}()
}
