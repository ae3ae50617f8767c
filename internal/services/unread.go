package services

import (
	"context"
	"fmt"

	"picturegram-sync/internal/errs"
	"picturegram-sync/internal/metrics"
	"picturegram-sync/internal/models"

	"github.com/rs/zerolog/log"
)

// UnreadCounter keeps live unread counts and owns the mark-as-read batch
type UnreadCounter struct {
	store    NotificationStore
	feed     ChangeFeed
	identity Identity
}

// NewUnreadCounter creates a new unread counter
func NewUnreadCounter(store NotificationStore, feed ChangeFeed, identity Identity) *UnreadCounter {
	return &UnreadCounter{store: store, feed: feed, identity: identity}
}

// Subscription is a live unread count listener
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel stops the listener and waits until its feed subscription is
// released. It is safe to call more than once, but not from onUpdate.
func (s *Subscription) Cancel() {
	s.cancel()
	<-s.done
}

// Done is closed once the listener has stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Subscribe calls onUpdate with the current unread count of username and
// again after every change to that user's notifications. Calls to onUpdate
// never overlap. The listener stops when ctx is done or Cancel is called.
func (c *UnreadCounter) Subscribe(ctx context.Context, username string, onUpdate func(count int)) (*Subscription, error) {
	if username == "" {
		return nil, errs.Validation("username is required")
	}
	if onUpdate == nil {
		return nil, errs.Validation("update callback is required")
	}

	feedSub, err := c.feed.Subscribe(username)
	if err != nil {
		return nil, errs.Remote(fmt.Errorf("failed to subscribe to notifications: %w", err))
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	metrics.UnreadSubscriptions.Inc()

	go func() {
		defer close(sub.done)
		defer metrics.UnreadSubscriptions.Dec()
		defer func() {
			if err := feedSub.Unsubscribe(); err != nil {
				log.Warn().Err(err).Str("user", username).Msg("Failed to release notification subscription")
			}
		}()
		defer cancel()

		c.refresh(ctx, username, onUpdate)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-feedSub.Updates():
				if !ok {
					return
				}
				c.refresh(ctx, username, onUpdate)
			}
		}
	}()

	return sub, nil
}

// Cancel releases sub. A nil handle is ignored.
func (c *UnreadCounter) Cancel(sub *Subscription) {
	if sub != nil {
		sub.Cancel()
	}
}

func (c *UnreadCounter) refresh(ctx context.Context, username string, onUpdate func(int)) {
	count, err := c.store.CountUnread(ctx, username)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Str("user", username).Msg("Failed to count unread notifications")
		}
		return
	}
	onUpdate(count)
}

// MarkAllAsRead flips every notification that is unread at the time of the
// call. Notifications created afterwards stay unread.
func (c *UnreadCounter) MarkAllAsRead(ctx context.Context, username string) (int, error) {
	p, ok := c.identity.CurrentPrincipal(ctx)
	if !ok {
		return 0, errs.ErrUnauthenticated
	}
	if username == "" {
		username = p.DisplayName
	}
	if username != p.DisplayName {
		return 0, errs.ErrForbidden
	}

	unread, err := c.store.ListUnread(ctx, username)
	if err != nil {
		return 0, errs.Remote(fmt.Errorf("failed to read unread notifications: %w", err))
	}
	if len(unread) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(unread))
	for _, n := range unread {
		ids = append(ids, n.ID)
	}

	marked, err := c.store.MarkRead(ctx, username, ids)
	if err != nil {
		return 0, errs.Remote(fmt.Errorf("failed to mark notifications read: %w", err))
	}
	metrics.NotificationsMarkedRead.Add(float64(marked))

	if err := c.feed.Publish(ctx, username); err != nil {
		log.Warn().Err(err).Str("user", username).Msg("Failed to publish notification change")
	}
	return marked, nil
}

// UnreadCount returns the principal's current unread count
func (c *UnreadCounter) UnreadCount(ctx context.Context) (int, error) {
	p, ok := c.identity.CurrentPrincipal(ctx)
	if !ok {
		return 0, errs.ErrUnauthenticated
	}
	count, err := c.store.CountUnread(ctx, p.DisplayName)
	if err != nil {
		return 0, errs.Remote(err)
	}
	return count, nil
}

// List returns the principal's notifications, newest first
func (c *UnreadCounter) List(ctx context.Context) ([]*models.Notification, error) {
	p, ok := c.identity.CurrentPrincipal(ctx)
	if !ok {
		return nil, errs.ErrUnauthenticated
	}
	list, err := c.store.ListByRecipient(ctx, p.DisplayName)
	if err != nil {
		return nil, errs.Remote(err)
	}
	return list, nil
}
