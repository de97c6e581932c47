// Package broadcast fans session and tab changes out to real-time
// subscribers.  Delivery is fire-and-forget: a subscriber that is not
// connected simply misses the event, and the authoritative state remains
// re-fetchable through the query path.  Per mutation the publish order is
// fixed — session topic first, then the venue staff topic — and publication
// always happens after the mutation has been durably applied.
package broadcast

import (
	"context"
	"fmt"
)

// Event names published by the engine.
const (
	EventSessionUpdate  = "session-update"
	EventTabUpdate      = "tab-update"
	EventPatronMovement = "patron-movement"
)

// Message is one published event as seen by a subscriber.
type Message struct {
	Topic   string `json:"topic"`
	Event   string `json:"event"`
	Payload []byte `json:"payload"`
}

// Broadcaster publishes JSON-encoded events to named topics and lets
// delivery surfaces subscribe to them.  Publish never blocks on slow
// subscribers.
type Broadcaster interface {
	// Publish encodes payload as JSON and delivers it to current
	// subscribers of topic.  Errors are delivery-infrastructure errors;
	// callers log them and continue.
	Publish(ctx context.Context, topic, event string, payload interface{}) error
	// Subscribe returns a channel of messages for topic and a cancel
	// function that releases the subscription.
	Subscribe(ctx context.Context, topic string) (<-chan Message, func(), error)
}

// SessionTopic is the per-session topic consumed by the patron's device.
func SessionTopic(sessionID uint64) string {
	return fmt.Sprintf("session:%d", sessionID)
}

// StaffTopic is the per-venue topic consumed by bartender terminals.
func StaffTopic(venueID uint64) string {
	return fmt.Sprintf("venue-staff:%d", venueID)
}
