package repository

import (
	"context"
	"errors"
	"fmt"

	"picturegram-sync/internal/errs"
	"picturegram-sync/internal/models"

	"github.com/jackc/pgx/v5"
)

const photoColumns = `id, author_id, author_name, resource_id, file_path, url, description, like_count, liked_by, created_at`

// PhotoRepository handles database operations for photos
type PhotoRepository struct {
	db PgxPool
}

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db PgxPool) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create creates a new photo
func (r *PhotoRepository) Create(ctx context.Context, photo *models.Photo) error {
	query := `
		INSERT INTO photos (` + photoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	likedBy := photo.LikedBy
	if likedBy == nil {
		likedBy = []string{}
	}
	_, err := r.db.Exec(ctx, query,
		photo.ID, photo.AuthorID, photo.AuthorName,
		photo.Media.ResourceID, photo.Media.FilePath, photo.Media.URL,
		photo.Description, photo.LikeCount, likedBy, photo.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create photo: %w", err)
	}
	return nil
}

// GetByID retrieves a photo by ID
func (r *PhotoRepository) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE id = $1`
	photo, err := scanPhoto(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("photo %s: %w", id, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return photo, nil
}

// ListByAuthor returns the photos of an author, newest first
func (r *PhotoRepository) ListByAuthor(ctx context.Context, authorID string) ([]*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE author_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	photos := []*models.Photo{}
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate photos: %w", err)
	}
	return photos, nil
}

// AddLiker puts username into the liker set. Adding an existing member is a no-op.
func (r *PhotoRepository) AddLiker(ctx context.Context, photoID, username string) error {
	query := `
		UPDATE photos
		SET liked_by = CASE WHEN $2 = ANY(liked_by) THEN liked_by ELSE array_append(liked_by, $2) END
		WHERE id = $1
	`
	return r.execOne(ctx, "add liker", photoID, query, photoID, username)
}

// RemoveLiker drops username from the liker set.
func (r *PhotoRepository) RemoveLiker(ctx context.Context, photoID, username string) error {
	query := `UPDATE photos SET liked_by = array_remove(liked_by, $2) WHERE id = $1`
	return r.execOne(ctx, "remove liker", photoID, query, photoID, username)
}

// IncrementLikeCount adds delta to the counter, never going below zero.
func (r *PhotoRepository) IncrementLikeCount(ctx context.Context, photoID string, delta int) error {
	query := `UPDATE photos SET like_count = GREATEST(like_count + $2, 0) WHERE id = $1`
	return r.execOne(ctx, "increment like count", photoID, query, photoID, delta)
}

// UpdateDescription replaces the description
func (r *PhotoRepository) UpdateDescription(ctx context.Context, photoID, description string) error {
	query := `UPDATE photos SET description = $2 WHERE id = $1`
	return r.execOne(ctx, "update description", photoID, query, photoID, description)
}

// Delete deletes a photo by ID
func (r *PhotoRepository) Delete(ctx context.Context, photoID string) error {
	query := `DELETE FROM photos WHERE id = $1`
	return r.execOne(ctx, "delete photo", photoID, query, photoID)
}

func (r *PhotoRepository) execOne(ctx context.Context, op, id, query string, args ...any) error {
	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("photo %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

func scanPhoto(row pgx.Row) (*models.Photo, error) {
	var p models.Photo
	err := row.Scan(
		&p.ID, &p.AuthorID, &p.AuthorName,
		&p.Media.ResourceID, &p.Media.FilePath, &p.Media.URL,
		&p.Description, &p.LikeCount, &p.LikedBy, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.LikedBy == nil {
		p.LikedBy = []string{}
	}
	p.Normalize()
	return &p, nil
}
