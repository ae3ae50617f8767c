package events

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBroker_PublishCoalesces(t *testing.T) {
	b := NewBroker()
	sub, err := b.Subscribe("alice")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, b.Publish(ctx, "alice"))
	require.NoError(t, b.Publish(ctx, "alice"))
	require.NoError(t, b.Publish(ctx, "bob"))

	<-sub.Updates()
	select {
	case <-sub.Updates():
		t.Fatal("expected a single coalesced signal")
	default:
	}
}

func TestBroker_Unsubscribe(t *testing.T) {
	b := NewBroker()
	sub, err := b.Subscribe("alice")
	require.NoError(t, err)
	require.Equal(t, 1, b.SubscriberCount("alice"))

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())
	require.Zero(t, b.SubscriberCount("alice"))

	_, open := <-sub.Updates()
	require.False(t, open)

	require.NoError(t, b.Publish(context.Background(), "alice"))
}

func TestBroker_Close(t *testing.T) {
	b := NewBroker()
	sub, err := b.Subscribe("alice")
	require.NoError(t, err)

	b.Close()
	_, open := <-sub.Updates()
	require.False(t, open)
	require.NoError(t, sub.Unsubscribe())
}

func TestSubject(t *testing.T) {
	s := Subject("john.doe *")
	require.True(t, strings.HasPrefix(s, subjectPrefix))
	require.NotContains(t, strings.TrimPrefix(s, subjectPrefix), ".")
	require.NotContains(t, s, " ")
	require.NotEqual(t, Subject("a"), Subject("b"))
}
