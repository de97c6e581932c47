package broadcast_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openvenue/bartab/internal/broadcast"
)

func recv(t *testing.T, ch <-chan broadcast.Message) broadcast.Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed before a message arrived")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return broadcast.Message{}
	}
}

func TestPublishReachesSubscribers(t *testing.T) {
	m := broadcast.NewMemory()
	ctx := context.Background()

	ch, cancel, err := m.Subscribe(ctx, broadcast.SessionTopic(1))
	require.NoError(t, err)
	defer cancel()

	payload := map[string]uint64{"sessionId": 1}
	require.NoError(t, m.Publish(ctx, broadcast.SessionTopic(1), broadcast.EventSessionUpdate, payload))

	msg := recv(t, ch)
	require.Equal(t, broadcast.EventSessionUpdate, msg.Event)
	require.Equal(t, broadcast.SessionTopic(1), msg.Topic)

	var got map[string]uint64
	require.NoError(t, json.Unmarshal(msg.Payload, &got))
	require.Equal(t, uint64(1), got["sessionId"])
}

func TestTopicsAreIsolated(t *testing.T) {
	m := broadcast.NewMemory()
	ctx := context.Background()

	ch, cancel, err := m.Subscribe(ctx, broadcast.SessionTopic(1))
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, m.Publish(ctx, broadcast.SessionTopic(2), broadcast.EventTabUpdate, nil))

	select {
	case msg := <-ch:
		t.Fatalf("received message for another topic: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishPreservesOrder(t *testing.T) {
	m := broadcast.NewMemory()
	ctx := context.Background()

	ch, cancel, err := m.Subscribe(ctx, broadcast.StaffTopic(1))
	require.NoError(t, err)
	defer cancel()

	for i := 0; i < 5; i++ {
		require.NoError(t, m.Publish(ctx, broadcast.StaffTopic(1), broadcast.EventTabUpdate, i))
	}
	for i := 0; i < 5; i++ {
		var got int
		require.NoError(t, json.Unmarshal(recv(t, ch).Payload, &got))
		require.Equal(t, i, got)
	}
}

func TestCancelClosesChannel(t *testing.T) {
	m := broadcast.NewMemory()
	ctx := context.Background()

	ch, cancel, err := m.Subscribe(ctx, broadcast.SessionTopic(1))
	require.NoError(t, err)

	cancel()
	_, ok := <-ch
	require.False(t, ok)

	// Publishing after the last subscriber left is still fine.
	require.NoError(t, m.Publish(ctx, broadcast.SessionTopic(1), broadcast.EventSessionUpdate, nil))

	// Cancel is safe to call twice.
	cancel()
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	m := broadcast.NewMemory()
	ctx := context.Background()

	ch, cancel, err := m.Subscribe(ctx, broadcast.SessionTopic(1))
	require.NoError(t, err)
	defer cancel()

	// Overfill the subscriber buffer without draining; Publish must keep
	// returning instead of blocking on the laggard.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = m.Publish(ctx, broadcast.SessionTopic(1), broadcast.EventTabUpdate, i)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
	_ = ch
}
