package models

import (
	"fmt"
	"time"

	"picturegram-sync/internal/errs"
)

// NotificationKind is the closed set of notification types. The zero
// value is not a valid kind.
type NotificationKind struct {
	name string
}

var (
	KindLike   = NotificationKind{"like"}
	KindFollow = NotificationKind{"follow"}
)

// ParseNotificationKind maps a wire name to a kind.
func ParseNotificationKind(s string) (NotificationKind, error) {
	switch s {
	case KindLike.name:
		return KindLike, nil
	case KindFollow.name:
		return KindFollow, nil
	}
	return NotificationKind{}, fmt.Errorf("%w: %q", errs.ErrInvalidKind, s)
}

func (k NotificationKind) String() string { return k.name }

// Valid reports whether k is one of the declared kinds.
func (k NotificationKind) Valid() bool {
	return k == KindLike || k == KindFollow
}

func (k NotificationKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, errs.ErrInvalidKind
	}
	return []byte(k.name), nil
}

func (k *NotificationKind) UnmarshalText(b []byte) error {
	parsed, err := ParseNotificationKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Title and Body are the push texts for a notification of this kind.
func (k NotificationKind) Title() string {
	if k == KindFollow {
		return "New Follower"
	}
	return "New Like"
}

func (k NotificationKind) Body(from string) string {
	if k == KindFollow {
		return from + " started following you"
	}
	return from + " liked your photo"
}

// Notification is a record addressed to ToUser
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"type"`
	FromUser  string           `json:"from_user"`
	ToUser    string           `json:"to_user"`
	CreatedAt time.Time        `json:"timestamp"`
	IsRead    bool             `json:"is_read"`
}

// NewNotification validates the fields and returns an unread notification.
func NewNotification(kind NotificationKind, from, to string, now time.Time) (*Notification, error) {
	if !kind.Valid() {
		return nil, errs.ErrInvalidKind
	}
	if from == "" || to == "" {
		return nil, errs.Validation("sender and recipient are required")
	}
	if from == to {
		return nil, errs.Validation("notification addressed to its sender")
	}
	return &Notification{
		Kind:      kind,
		FromUser:  from,
		ToUser:    to,
		CreatedAt: now,
	}, nil
}
