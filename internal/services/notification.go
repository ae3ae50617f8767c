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

// NotificationService records like and follow notifications, signals the
// recipient's change feed and asks the push gateway to alert the recipient.
type NotificationService struct {
	store           NotificationStore
	feed            ChangeFeed
	push            PushGateway
	identity        Identity
	pushToRecipient bool
	pushTimeout     time.Duration
	now             func() time.Time

	wg sync.WaitGroup
}

// NewNotificationService creates a new notification service. With
// pushToRecipient off, only notifications addressed to the acting
// principal's own session are pushed.
func NewNotificationService(
	store NotificationStore,
	feed ChangeFeed,
	push PushGateway,
	identity Identity,
	pushToRecipient bool,
	pushTimeout time.Duration,
) *NotificationService {
	return &NotificationService{
		store:           store,
		feed:            feed,
		push:            push,
		identity:        identity,
		pushToRecipient: pushToRecipient,
		pushTimeout:     pushTimeout,
		now:             time.Now,
	}
}

// Emit validates and stores a notification and returns its id.
func (s *NotificationService) Emit(ctx context.Context, kind models.NotificationKind, from, to string) (string, error) {
	n, err := models.NewNotification(kind, from, to, s.now())
	if err != nil {
		return "", err
	}
	n.ID = uuid.New().String()

	if err := s.store.Create(ctx, n); err != nil {
		metrics.NotificationsEmitted.WithLabelValues(kind.String(), "error").Inc()
		return "", errs.Remote(fmt.Errorf("failed to store notification: %w", err))
	}
	metrics.NotificationsEmitted.WithLabelValues(kind.String(), "ok").Inc()

	if err := s.feed.Publish(ctx, to); err != nil {
		log.Warn().Err(err).Str("to_user", to).Msg("Failed to publish notification change")
	}

	if s.shouldPush(ctx, to) {
		s.pushAsync(ctx, to, kind.Title(), kind.Body(from))
	}

	log.Debug().
		Str("notification_id", n.ID).
		Str("type", kind.String()).
		Str("from_user", from).
		Str("to_user", to).
		Msg("Notification emitted")

	return n.ID, nil
}

// Notify emits a notification and only logs failures.
func (s *NotificationService) Notify(ctx context.Context, kind models.NotificationKind, from, to string) {
	if _, err := s.Emit(ctx, kind, from, to); err != nil {
		log.Error().
			Err(err).
			Str("type", kind.String()).
			Str("from_user", from).
			Str("to_user", to).
			Msg("Failed to emit notification")
	}
}

// Wait blocks until background pushes are done.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func (s *NotificationService) shouldPush(ctx context.Context, to string) bool {
	if s.pushToRecipient {
		return true
	}
	p, ok := s.identity.CurrentPrincipal(ctx)
	return ok && p.DisplayName == to
}

// pushAsync outlives the request that triggered it.
func (s *NotificationService) pushAsync(ctx context.Context, to, title, body string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.pushTimeout)
		defer cancel()

		err := s.push.ShowLocalNotification(pushCtx, to, title, body)
		metrics.PushResults.WithLabelValues(metrics.Result(err)).Inc()
		if err != nil {
			log.Debug().Err(err).Str("to_user", to).Msg("Push not delivered")
		}
	}()
}
