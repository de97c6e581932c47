// Package locks provides a per-key mutex with bounded acquisition.  The
// session ID is the serialization boundary for all tab and lifecycle
// mutations: at most one mutation per session is in flight, while sessions
// proceed independently of each other.
package locks

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout means the lock for a key could not be acquired within the
// deadline.  Detection-driven callers drop the event with a warning rather
// than queueing it; stale proximity data is worse than none.
var ErrTimeout = errors.New("lock acquisition timed out")

// Keyed is a set of mutexes addressed by key.  Each key's mutex is a
// one-slot channel so acquisition can race a timer or a context.
type Keyed struct {
	mu    sync.Mutex
	slots map[uint64]chan struct{}
}

// NewKeyed returns an empty keyed lock set.
func NewKeyed() *Keyed {
	return &Keyed{slots: make(map[uint64]chan struct{})}
}

func (k *Keyed) slot(key uint64) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		k.slots[key] = s
	}
	return s
}

// Acquire takes the lock for key, waiting at most timeout.  It returns an
// unlock function on success and ErrTimeout otherwise.  A cancelled context
// returns the context's error.
func (k *Keyed) Acquire(ctx context.Context, key uint64, timeout time.Duration) (func(), error) {
	s := k.slot(key)
	select {
	case s <- struct{}{}:
		return func() { <-s }, nil
	default:
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case s <- struct{}{}:
		return func() { <-s }, nil
	case <-t.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
