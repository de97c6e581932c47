package broadcast

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Redis is a Broadcaster backed by Redis pub/sub, so every server instance
// and every staff terminal connected to any instance sees the same stream.
// Redis pub/sub has exactly the delivery contract this engine wants: no
// durable queue, no replay, disconnected subscribers miss events.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an already-connected client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// envelope is the wire format carried inside the Redis channel; the channel
// name itself is the topic.
type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Publish sends the event on the Redis channel named after the topic.
func (r *Redis) Publish(ctx context.Context, topic, event string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env, err := json.Marshal(envelope{Event: event, Payload: body})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, topic, env).Err()
}

// Subscribe bridges a Redis subscription onto a Message channel.  The
// returned cancel closes the subscription and the channel.
func (r *Redis) Subscribe(ctx context.Context, topic string) (<-chan Message, func(), error) {
	sub := r.client.Subscribe(ctx, topic)
	// Force the subscription to be established before returning so callers
	// do not miss events published immediately after Subscribe.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan Message, subscriberBuffer)
	go func() {
		defer close(out)
		for m := range sub.Channel() {
			var env envelope
			if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
				continue
			}
			out <- Message{Topic: m.Channel, Event: env.Event, Payload: env.Payload}
		}
	}()
	return out, func() { _ = sub.Close() }, nil
}
