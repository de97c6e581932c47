package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Broadcaster.  It backs single-node deployments,
// the degraded mode when Redis is unreachable, and the test suite.  Each
// subscriber gets a buffered channel; a subscriber that falls behind loses
// messages rather than blocking the publisher.
type Memory struct {
	mut  sync.RWMutex
	subs map[string]map[uuid.UUID]chan Message
}

// subscriberBuffer is how many undelivered messages a subscriber may lag
// before it starts losing them.
const subscriberBuffer = 64

// NewMemory returns an empty in-process broadcaster.
func NewMemory() *Memory {
	return &Memory{subs: make(map[string]map[uuid.UUID]chan Message)}
}

// Publish delivers the event to every current subscriber of the topic.
func (m *Memory) Publish(_ context.Context, topic, event string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := Message{Topic: topic, Event: event, Payload: body}

	m.mut.RLock()
	defer m.mut.RUnlock()
	for _, ch := range m.subs[topic] {
		select {
		case ch <- msg:
		default:
			// Subscriber is not keeping up; drop rather than block.
		}
	}
	return nil
}

// Subscribe registers a listener channel for the topic.
func (m *Memory) Subscribe(_ context.Context, topic string) (<-chan Message, func(), error) {
	m.mut.Lock()
	defer m.mut.Unlock()

	subs, ok := m.subs[topic]
	if !ok {
		subs = make(map[uuid.UUID]chan Message)
		m.subs[topic] = subs
	}
	id := uuid.New()
	ch := make(chan Message, subscriberBuffer)
	subs[id] = ch

	cancel := func() {
		m.mut.Lock()
		defer m.mut.Unlock()
		if ch, ok := m.subs[topic][id]; ok {
			delete(m.subs[topic], id)
			close(ch)
		}
	}
	return ch, cancel, nil
}
