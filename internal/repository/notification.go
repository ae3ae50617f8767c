package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"picturegram-sync/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	unreadCountPrefix = "notif:unread:"
	unreadGenPrefix   = "notif:unread-gen:"
	unreadCountTTL    = 5 * time.Minute
)

// unreadCache is the subset of *redis.Client used for unread counts.
type unreadCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

const notificationColumns = `id, kind, from_user, to_user, created_at, is_read`

// NotificationRepository handles database operations for notifications.
// Unread counts are cached in Redis when a client is configured. Cached
// counts are keyed by a per-user generation that every write bumps, so a
// count computed before a write can never be served after it.
type NotificationRepository struct {
	db    PgxPool
	redis unreadCache
}

// NewNotificationRepository creates a new notification repository.
// redisClient may be nil.
func NewNotificationRepository(db PgxPool, redisClient *redis.Client) *NotificationRepository {
	r := &NotificationRepository{db: db}
	if redisClient != nil {
		r.redis = redisClient
	}
	return r
}

// Create stores a notification
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, n.ID, n.Kind.String(), n.FromUser, n.ToUser, n.CreatedAt, n.IsRead)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	r.invalidateUnread(ctx, n.ToUser)
	return nil
}

// ListByRecipient returns all notifications addressed to username, newest first
func (r *NotificationRepository) ListByRecipient(ctx context.Context, username string) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE to_user = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, username)
}

// ListUnread returns the unread notifications addressed to username
func (r *NotificationRepository) ListUnread(ctx context.Context, username string) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE to_user = $1 AND is_read = false ORDER BY created_at DESC`
	return r.list(ctx, query, username)
}

// CountUnread returns the number of unread notifications for username
func (r *NotificationRepository) CountUnread(ctx context.Context, username string) (int, error) {
	cacheKey := ""
	if r.redis != nil {
		gen, err := r.redis.Get(ctx, unreadGenPrefix+username).Int64()
		switch {
		case err == nil || errors.Is(err, redis.Nil):
			cacheKey = unreadCountPrefix + username + ":" + strconv.FormatInt(gen, 10)
			if count, err := r.redis.Get(ctx, cacheKey).Int(); err == nil {
				return count, nil
			}
		default:
			log.Warn().Err(err).Str("user", username).Msg("Failed to read unread count generation")
		}
	}

	query := `SELECT COUNT(*) FROM notifications WHERE to_user = $1 AND is_read = false`
	var count int
	if err := r.db.QueryRow(ctx, query, username).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	if cacheKey != "" {
		if err := r.redis.Set(ctx, cacheKey, strconv.Itoa(count), unreadCountTTL).Err(); err != nil {
			log.Warn().Err(err).Str("user", username).Msg("Failed to cache unread count")
		}
	}
	return count, nil
}

// MarkRead flips the given unread notifications of username to read in a
// single statement. It returns how many rows changed.
func (r *NotificationRepository) MarkRead(ctx context.Context, username string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `UPDATE notifications SET is_read = true WHERE id = ANY($1) AND to_user = $2 AND is_read = false`
	result, err := r.db.Exec(ctx, query, ids, username)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	r.invalidateUnread(ctx, username)
	return int(result.RowsAffected()), nil
}

func (r *NotificationRepository) list(ctx context.Context, query, username string) ([]*models.Notification, error) {
	rows, err := r.db.Query(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	out := []*models.Notification{}
	for rows.Next() {
		var n models.Notification
		var kind string
		if err := rows.Scan(&n.ID, &kind, &n.FromUser, &n.ToUser, &n.CreatedAt, &n.IsRead); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if n.Kind, err = models.ParseNotificationKind(kind); err != nil {
			log.Warn().Err(err).Str("notification_id", n.ID).Msg("Skipping notification with unknown kind")
			continue
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return out, nil
}

func (r *NotificationRepository) invalidateUnread(ctx context.Context, username string) {
	if r.redis == nil {
		return
	}
	if err := r.redis.Incr(ctx, unreadGenPrefix+username).Err(); err != nil {
		log.Warn().Err(err).Str("user", username).Msg("Failed to invalidate unread count")
	}
}
