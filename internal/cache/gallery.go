// Package cache keeps each user's ordered gallery on local disk.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"picturegram-sync/internal/errs"
	"picturegram-sync/internal/models"

	bolt "go.etcd.io/bbolt"
)

var bucketGalleries = []byte("galleries")

// GalleryCache persists galleries in a BoltDB file, one key per user
type GalleryCache struct {
	db *bolt.DB
}

// Open opens (or creates) the cache file at path.
func Open(path string) (*GalleryCache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("%w: create cache dir: %w", errs.ErrIO, err)
		}
	}

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open cache: %w", errs.ErrIO, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketGalleries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create bucket: %w", errs.ErrIO, err)
	}

	return &GalleryCache{db: db}, nil
}

// Close closes the database
func (c *GalleryCache) Close() error {
	return c.db.Close()
}

// Load returns the saved sequence for userID. A user without saved state
// gets an empty slice.
func (c *GalleryCache) Load(userID string) ([]*models.Photo, error) {
	photos := []*models.Photo{}
	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketGalleries).Get([]byte(userID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &photos)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: load gallery %s: %w", errs.ErrIO, userID, err)
	}

	for _, p := range photos {
		p.Normalize()
	}
	return photos, nil
}

// Save replaces the saved sequence for userID.
func (c *GalleryCache) Save(userID string, photos []*models.Photo) error {
	if photos == nil {
		photos = []*models.Photo{}
	}
	data, err := json.Marshal(photos)
	if err != nil {
		return fmt.Errorf("%w: encode gallery: %w", errs.ErrIO, err)
	}

	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketGalleries).Put([]byte(userID), data)
	})
	if err != nil {
		return fmt.Errorf("%w: save gallery %s: %w", errs.ErrIO, userID, err)
	}
	return nil
}
