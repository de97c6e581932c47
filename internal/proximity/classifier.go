// Package proximity turns raw beacon detections into NEAR/FAR transitions.
// A beacon becomes NEAR after a continuous strong-signal stretch at least as
// long as its dwell requirement, and FAR once it has gone silent for the
// staleness window or the scanner reports an explicit exit.  Transitions are
// only emitted on change, so a single weak or duplicate reading cannot flap
// the result.
package proximity

import (
	"errors"
	"sync"
	"time"

	"github.com/openvenue/bartab/internal/model"
)

// State is a beacon's binary proximity classification.
type State int

const (
	Far State = iota
	Near
)

// String returns "NEAR" or "FAR".
func (s State) String() string {
	if s == Near {
		return "NEAR"
	}
	return "FAR"
}

// Errors reported by Observe.  Both are expected noise from unreliable
// physical scanners: callers log and move on, they never abort the pipeline.
var (
	// ErrUnknownBeacon means the detection named a beacon the registry does
	// not know about.
	ErrUnknownBeacon = errors.New("unknown beacon")
	// ErrStaleEvent means the detection is older than the last applied
	// observation for its beacon and was dropped.
	ErrStaleEvent = errors.New("stale detection event")
)

// Registry is the subset of the zone/beacon registry the classifier needs.
type Registry interface {
	Beacon(id uint64) (model.Beacon, bool)
	MaxDwell(id uint64) time.Duration
	TouchLastSeen(id uint64, at time.Time)
}

// Transition is an emitted change of classification for one beacon, tagged
// with the session whose detection feed produced it.
type Transition struct {
	BeaconID  uint64
	SessionID uint64
	State     State
	At        time.Time
}

type beaconState struct {
	current      State
	sessionID    uint64
	lastApplied  time.Time // timestamp of the last accepted observation
	strongSince  time.Time // start of the current continuous strong stretch
	lastStrongAt time.Time // most recent strong reading
}

// Classifier keeps per-beacon classification state, addressed by beacon ID.
type Classifier struct {
	reg        Registry
	staleAfter time.Duration

	mu     sync.Mutex
	states map[uint64]*beaconState
}

// NewClassifier builds a classifier.  staleAfter is the silence window after
// which a NEAR beacon is considered FAR.
func NewClassifier(reg Registry, staleAfter time.Duration) *Classifier {
	return &Classifier{
		reg:        reg,
		staleAfter: staleAfter,
		states:     make(map[uint64]*beaconState),
	}
}

// Observe applies one detection event.  It returns a non-nil Transition when
// the beacon's classification changed, nil when it is unchanged.  Unknown
// beacons return ErrUnknownBeacon; out-of-order events return ErrStaleEvent.
// The beacon's lastSeen is touched for every known-beacon event regardless
// of the classification outcome.
func (c *Classifier) Observe(ev model.DetectionEvent) (*Transition, error) {
	b, ok := c.reg.Beacon(ev.BeaconID)
	if !ok {
		return nil, ErrUnknownBeacon
	}
	c.reg.TouchLastSeen(b.ID, ev.ObservedAt)

	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.states[b.ID]
	if !ok {
		st = &beaconState{current: Far}
		c.states[b.ID] = st
	}
	if ev.ObservedAt.Before(st.lastApplied) {
		return nil, ErrStaleEvent
	}
	st.lastApplied = ev.ObservedAt
	st.sessionID = ev.SessionID

	if ev.Action == model.DetectExit {
		// Explicit region exit from the scanner: force FAR immediately
		// instead of waiting out the silence window.
		st.strongSince = time.Time{}
		if st.current == Near {
			st.current = Far
			return &Transition{BeaconID: b.ID, SessionID: ev.SessionID, State: Far, At: ev.ObservedAt}, nil
		}
		return nil, nil
	}

	if ev.RSSI < b.Threshold {
		// Weak reading breaks the strong stretch but does not emit FAR on
		// its own; FAR comes from silence or an explicit exit.
		st.strongSince = time.Time{}
		return nil, nil
	}

	if st.strongSince.IsZero() || ev.ObservedAt.Sub(st.lastStrongAt) > c.staleAfter {
		st.strongSince = ev.ObservedAt
	}
	st.lastStrongAt = ev.ObservedAt

	if st.current == Far && ev.ObservedAt.Sub(st.strongSince) >= c.reg.MaxDwell(b.ID) {
		st.current = Near
		return &Transition{BeaconID: b.ID, SessionID: ev.SessionID, State: Near, At: ev.ObservedAt}, nil
	}
	return nil, nil
}

// Sweep emits FAR transitions for every NEAR beacon that has not produced a
// strong reading within the staleness window.  It is driven by a ticker in
// the pipeline so an exit inferred from silence does not require another
// detection event to surface.
func (c *Classifier) Sweep(now time.Time) []Transition {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Transition
	for id, st := range c.states {
		if st.current != Near {
			continue
		}
		if now.Sub(st.lastStrongAt) < c.staleAfter {
			continue
		}
		st.current = Far
		st.strongSince = time.Time{}
		out = append(out, Transition{BeaconID: id, SessionID: st.sessionID, State: Far, At: now})
	}
	return out
}

// State returns the current classification for a beacon.  Beacons never
// observed are FAR.
func (c *Classifier) State(beaconID uint64) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.states[beaconID]; ok {
		return st.current
	}
	return Far
}
