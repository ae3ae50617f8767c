package services

import (
	"context"

	"picturegram-sync/internal/events"
	"picturegram-sync/internal/models"
)

// Identity supplies the principal acting on a call
type Identity interface {
	CurrentPrincipal(ctx context.Context) (models.Principal, bool)
}

// PhotoStore is the remote photo collection. Liker and counter updates are
// field-level primitives, never read-modify-write.
type PhotoStore interface {
	Create(ctx context.Context, photo *models.Photo) error
	GetByID(ctx context.Context, id string) (*models.Photo, error)
	ListByAuthor(ctx context.Context, authorID string) ([]*models.Photo, error)
	AddLiker(ctx context.Context, photoID, username string) error
	RemoveLiker(ctx context.Context, photoID, username string) error
	IncrementLikeCount(ctx context.Context, photoID string, delta int) error
	UpdateDescription(ctx context.Context, photoID, description string) error
	Delete(ctx context.Context, photoID string) error
}

// UserStore is the remote user collection
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByName(ctx context.Context, name string) (*models.User, error)
	NameTaken(ctx context.Context, name, exceptID string) (bool, error)
	UpdateProfile(ctx context.Context, userID, name, bio string) error
	UpdatePushToken(ctx context.Context, userID string, pushToken *string) error
	List(ctx context.Context, query, excludeID string) ([]*models.User, error)
	AddFollowing(ctx context.Context, userID, targetID string) error
	RemoveFollowing(ctx context.Context, userID, targetID string) error
	AddFollower(ctx context.Context, userID, followerID string) error
	RemoveFollower(ctx context.Context, userID, followerID string) error
	IsFollowing(ctx context.Context, userID, targetID string) (bool, error)
}

// NotificationStore is the remote notification collection
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByRecipient(ctx context.Context, username string) ([]*models.Notification, error)
	ListUnread(ctx context.Context, username string) ([]*models.Notification, error)
	CountUnread(ctx context.Context, username string) (int, error)
	MarkRead(ctx context.Context, username string, ids []string) (int, error)
}

// PhotoCache is the on-device ordered gallery
type PhotoCache interface {
	Load(userID string) ([]*models.Photo, error)
	Save(userID string, photos []*models.Photo) error
}

// BlobStore holds photo bytes
type BlobStore interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// PushGateway shows an alert on the recipient's device
type PushGateway interface {
	ShowLocalNotification(ctx context.Context, recipient, title, body string) error
}

// ChangeFeed signals changes to a recipient's notifications. Topics are usernames.
type ChangeFeed interface {
	Publish(ctx context.Context, topic string) error
	Subscribe(topic string) (events.Subscription, error)
}

// Notifier records a notification as a side effect. Failures are never
// reported to the caller.
type Notifier interface {
	Notify(ctx context.Context, kind models.NotificationKind, from, to string)
}
