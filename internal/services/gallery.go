package services

import (
	"context"
	"time"

	"picturegram-sync/internal/errs"
	"picturegram-sync/internal/models"
)

// GalleryService reads and rearranges the principal's local gallery
type GalleryService struct {
	cache       PhotoCache
	identity    Identity
	seedSamples bool
}

// NewGalleryService creates a new gallery service. With seedSamples on, an
// empty gallery starts with the bundled sample photos.
func NewGalleryService(cache PhotoCache, identity Identity, seedSamples bool) *GalleryService {
	return &GalleryService{cache: cache, identity: identity, seedSamples: seedSamples}
}

// Load returns the principal's gallery
func (s *GalleryService) Load(ctx context.Context) (*models.Gallery, error) {
	p, ok := s.identity.CurrentPrincipal(ctx)
	if !ok {
		return nil, errs.ErrUnauthenticated
	}
	photos, err := s.cache.Load(p.ID)
	if err != nil {
		return nil, err
	}
	gallery := &models.Gallery{OwnerID: p.ID, Photos: photos}

	if len(photos) == 0 && s.seedSamples {
		gallery.Photos = models.SamplePhotos(time.Now())
		if err := s.Save(gallery); err != nil {
			return nil, err
		}
	}
	return gallery, nil
}

// Save persists the gallery as is
func (s *GalleryService) Save(gallery *models.Gallery) error {
	return s.cache.Save(gallery.OwnerID, gallery.Photos)
}

// Photo returns the entry at index
func (s *GalleryService) Photo(gallery *models.Gallery, index int) (*models.Photo, error) {
	if index < 0 || index >= len(gallery.Photos) {
		return nil, errs.ErrNotFound
	}
	return gallery.Photos[index], nil
}

// Move reorders the gallery and saves it after the change
func (s *GalleryService) Move(ctx context.Context, from, to int) (*models.Gallery, error) {
	gallery, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !gallery.Move(from, to) {
		return nil, errs.Validation("position out of range")
	}
	if err := s.Save(gallery); err != nil {
		return nil, err
	}
	return gallery, nil
}

// AddSamples appends the sample photos to the gallery
func (s *GalleryService) AddSamples(ctx context.Context) (*models.Gallery, error) {
	gallery, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	gallery.Photos = append(gallery.Photos, models.SamplePhotos(time.Now())...)
	if err := s.Save(gallery); err != nil {
		return nil, err
	}
	return gallery, nil
}
