package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"picturegram-sync/internal/errs"
	"picturegram-sync/internal/events"
	"picturegram-sync/internal/identity"
	"picturegram-sync/internal/models"

	"github.com/stretchr/testify/require"
)

func seedNotification(t *testing.T, store *fakeNotificationStore, id, from, to string) {
	t.Helper()
	n, err := models.NewNotification(models.KindLike, from, to, time.Now())
	require.NoError(t, err)
	n.ID = id
	require.NoError(t, store.Create(context.Background(), n))
}

func waitCount(t *testing.T, ch <-chan int, want int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-ch:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("unread count never reached %d", want)
		}
	}
}

func TestSubscribe_InitialAndLiveCounts(t *testing.T) {
	store := &fakeNotificationStore{}
	seedNotification(t, store, "n1", "bob", "alice")
	broker := events.NewBroker()
	counter := NewUnreadCounter(store, broker, identity.ContextProvider{})
	notifications := NewNotificationService(store, broker, &fakePush{}, identity.ContextProvider{}, false, time.Second)

	counts := make(chan int, 16)
	sub, err := counter.Subscribe(context.Background(), "alice", func(n int) { counts <- n })
	require.NoError(t, err)
	defer counter.Cancel(sub)

	waitCount(t, counts, 1)

	_, err = notifications.Emit(as("u2", "bob"), models.KindFollow, "bob", "alice")
	require.NoError(t, err)
	waitCount(t, counts, 2)

	marked, err := counter.MarkAllAsRead(as("u1", "alice"), "alice")
	require.NoError(t, err)
	require.Equal(t, 2, marked)
	waitCount(t, counts, 0)
}

func TestSubscribe_CancelReleasesFeed(t *testing.T) {
	broker := events.NewBroker()
	counter := NewUnreadCounter(&fakeNotificationStore{}, broker, identity.ContextProvider{})

	sub, err := counter.Subscribe(context.Background(), "alice", func(int) {})
	require.NoError(t, err)
	require.Equal(t, 1, broker.SubscriberCount("alice"))

	sub.Cancel()
	sub.Cancel()
	counter.Cancel(nil)
	require.Zero(t, broker.SubscriberCount("alice"))
}

func TestSubscribe_ContextDoneReleasesFeed(t *testing.T) {
	broker := events.NewBroker()
	counter := NewUnreadCounter(&fakeNotificationStore{}, broker, identity.ContextProvider{})
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := counter.Subscribe(ctx, "alice", func(int) {})
	require.NoError(t, err)
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
	require.Zero(t, broker.SubscriberCount("alice"))
}

func TestSubscribe_FeedClosedReleasesListener(t *testing.T) {
	broker := events.NewBroker()
	counter := NewUnreadCounter(&fakeNotificationStore{}, broker, identity.ContextProvider{})

	sub, err := counter.Subscribe(context.Background(), "alice", func(int) {})
	require.NoError(t, err)
	broker.Close()

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

type failingFeed struct{}

func (failingFeed) Publish(context.Context, string) error { return nil }
func (failingFeed) Subscribe(string) (events.Subscription, error) {
	return nil, errors.New("feed down")
}

func TestSubscribe_Errors(t *testing.T) {
	counter := NewUnreadCounter(&fakeNotificationStore{}, failingFeed{}, identity.ContextProvider{})

	_, err := counter.Subscribe(context.Background(), "", func(int) {})
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = counter.Subscribe(context.Background(), "alice", func(int) {})
	require.ErrorIs(t, err, errs.ErrRemote)
}

func TestMarkAllAsRead_SnapshotIsolation(t *testing.T) {
	store := &fakeNotificationStore{}
	seedNotification(t, store, "n1", "bob", "alice")
	seedNotification(t, store, "n2", "carol", "alice")
	counter := NewUnreadCounter(store, events.NewBroker(), identity.ContextProvider{})

	// arrives after the unread snapshot was taken
	store.beforeMark = func() {
		store.beforeMark = nil
		seedNotification(t, store, "n3", "dave", "alice")
	}

	marked, err := counter.MarkAllAsRead(as("u1", "alice"), "alice")
	require.NoError(t, err)
	require.Equal(t, 2, marked)

	unread, err := store.ListUnread(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	require.Equal(t, "n3", unread[0].ID)
}

func TestMarkAllAsRead_Authorization(t *testing.T) {
	store := &fakeNotificationStore{}
	seedNotification(t, store, "n1", "bob", "alice")
	counter := NewUnreadCounter(store, events.NewBroker(), identity.ContextProvider{})

	_, err := counter.MarkAllAsRead(context.Background(), "alice")
	require.ErrorIs(t, err, errs.ErrUnauthenticated)

	_, err = counter.MarkAllAsRead(as("u2", "bob"), "alice")
	require.ErrorIs(t, err, errs.ErrForbidden)

	marked, err := counter.MarkAllAsRead(as("u1", "alice"), "")
	require.NoError(t, err)
	require.Equal(t, 1, marked)

	marked, err = counter.MarkAllAsRead(as("u1", "alice"), "alice")
	require.NoError(t, err)
	require.Zero(t, marked)
}

func TestListAndUnreadCount(t *testing.T) {
	store := &fakeNotificationStore{}
	seedNotification(t, store, "n1", "bob", "alice")
	seedNotification(t, store, "n2", "carol", "alice")
	seedNotification(t, store, "n3", "alice", "bob")
	counter := NewUnreadCounter(store, events.NewBroker(), identity.ContextProvider{})
	ctx := as("u1", "alice")

	list, err := counter.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "n2", list[0].ID)

	count, err := counter.UnreadCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}
