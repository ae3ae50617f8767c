package repository

import (
	"context"
	"errors"
	"fmt"

	"picturegram-sync/internal/errs"
	"picturegram-sync/internal/models"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, name, bio, following, followers, COALESCE(push_token, ''), created_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db PgxPool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db PgxPool) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, bio, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, user.ID, user.Name, user.Bio, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.ErrNameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByName retrieves a user by username
func (r *UserRepository) GetByName(ctx context.Context, name string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE name = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", name, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by name: %w", err)
	}
	return user, nil
}

// NameTaken checks whether another user already uses name
func (r *UserRepository) NameTaken(ctx context.Context, name, exceptID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE name = $1 AND id <> $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, name, exceptID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check name: %w", err)
	}
	return exists, nil
}

// UpdateProfile updates name and bio
func (r *UserRepository) UpdateProfile(ctx context.Context, userID, name, bio string) error {
	query := `UPDATE users SET name = $2, bio = $3 WHERE id = $1`
	result, err := r.db.Exec(ctx, query, userID, name, bio)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.ErrNameTaken
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, errs.ErrNotFound)
	}
	return nil
}

// UpdatePushToken updates the push token for a user
func (r *UserRepository) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	query := `UPDATE users SET push_token = $1 WHERE id = $2`
	_, err := r.db.Exec(ctx, query, pushToken, userID)
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	return nil
}

// List returns every user except excludeID whose name contains query,
// ignoring case. An empty query matches everybody.
func (r *UserRepository) List(ctx context.Context, query, excludeID string) ([]*models.User, error) {
	sql := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id <> $1 AND ($2 = '' OR strpos(lower(name), lower($2)) > 0)
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, sql, excludeID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// AddFollowing puts targetID into the following set of userID.
func (r *UserRepository) AddFollowing(ctx context.Context, userID, targetID string) error {
	return r.addToSet(ctx, "following", userID, targetID)
}

// RemoveFollowing drops targetID from the following set of userID.
func (r *UserRepository) RemoveFollowing(ctx context.Context, userID, targetID string) error {
	return r.removeFromSet(ctx, "following", userID, targetID)
}

// AddFollower puts followerID into the followers set of userID.
func (r *UserRepository) AddFollower(ctx context.Context, userID, followerID string) error {
	return r.addToSet(ctx, "followers", userID, followerID)
}

// RemoveFollower drops followerID from the followers set of userID.
func (r *UserRepository) RemoveFollower(ctx context.Context, userID, followerID string) error {
	return r.removeFromSet(ctx, "followers", userID, followerID)
}

// IsFollowing reads the following set of userID only.
func (r *UserRepository) IsFollowing(ctx context.Context, userID, targetID string) (bool, error) {
	query := `SELECT $2 = ANY(following) FROM users WHERE id = $1`
	var following bool
	err := r.db.QueryRow(ctx, query, userID, targetID).Scan(&following)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("user %s: %w", userID, errs.ErrNotFound)
		}
		return false, fmt.Errorf("failed to check following: %w", err)
	}
	return following, nil
}

// column is one of the two fixed array columns, never user input.
func (r *UserRepository) addToSet(ctx context.Context, column, userID, member string) error {
	query := `
		UPDATE users
		SET ` + column + ` = CASE WHEN $2 = ANY(` + column + `) THEN ` + column + ` ELSE array_append(` + column + `, $2) END
		WHERE id = $1
	`
	return r.execSet(ctx, column, userID, query, member)
}

func (r *UserRepository) removeFromSet(ctx context.Context, column, userID, member string) error {
	query := `UPDATE users SET ` + column + ` = array_remove(` + column + `, $2) WHERE id = $1`
	return r.execSet(ctx, column, userID, query, member)
}

func (r *UserRepository) execSet(ctx context.Context, column, userID, query, member string) error {
	result, err := r.db.Exec(ctx, query, userID, member)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, errs.ErrNotFound)
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var pushToken string
	err := row.Scan(&u.ID, &u.Name, &u.Bio, &u.Following, &u.Followers, &pushToken, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if pushToken != "" {
		u.PushToken = &pushToken
	}
	if u.Following == nil {
		u.Following = []string{}
	}
	if u.Followers == nil {
		u.Followers = []string{}
	}
	return &u, nil
}
