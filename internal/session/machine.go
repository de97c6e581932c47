// Package session owns the lifecycle of a patron visit: pending → active →
// closed or cancelled.  All status and timestamp mutations go through the
// Machine, under the same per-session lock the tab ledger uses, so lifecycle
// and tab mutations of one session are totally ordered.
//
// Duplicate and late inputs are routine with radio-driven triggers, so
// transitions are idempotent: re-applying an input the session has already
// absorbed is a logged no-op, never an error.
package session

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/openvenue/bartab/internal/broadcast"
	"github.com/openvenue/bartab/internal/ledger"
	"github.com/openvenue/bartab/internal/locks"
	"github.com/openvenue/bartab/internal/model"
	"github.com/openvenue/bartab/internal/payments"
	"github.com/openvenue/bartab/internal/store"
	"github.com/openvenue/bartab/internal/trigger"
)

// Machine drives session lifecycle transitions.
type Machine struct {
	sessions    store.SessionStore
	ledger      *ledger.Ledger
	gateway     payments.Gateway
	bus         broadcast.Broadcaster
	locks       *locks.Keyed
	lockTimeout time.Duration
}

// NewMachine builds a state machine.  The keyed lock set must be the one the
// ledger uses.
func NewMachine(sessions store.SessionStore, led *ledger.Ledger, gateway payments.Gateway, bus broadcast.Broadcaster, keyed *locks.Keyed, lockTimeout time.Duration) *Machine {
	return &Machine{
		sessions:    sessions,
		ledger:      led,
		gateway:     gateway,
		bus:         bus,
		locks:       keyed,
		lockTimeout: lockTimeout,
	}
}

// Create opens a pending session for a scanned table code and returns it.
// The patron key is the opaque token the patron's device uses from then on.
func (m *Machine) Create(ctx context.Context, venueID uint64, tableLabel string) (*model.Session, error) {
	s := &model.Session{
		VenueID:          venueID,
		PatronKey:        uuid.NewString(),
		TableLabel:       tableLabel,
		Status:           model.SessionPending,
		SettlementStatus: model.SettlementPending,
	}
	if err := m.sessions.CreateSession(ctx, s); err != nil {
		return nil, err
	}
	m.publish(ctx, s)
	return s, nil
}

// ApplyTrigger applies a resolver decision.  NONE and notification decisions
// change no state; activate_tab and close_tab drive the lifecycle.  at is
// the observation time of the transition that produced the decision.
func (m *Machine) ApplyTrigger(ctx context.Context, d trigger.Decision, at time.Time) error {
	switch d.Action {
	case model.ActionActivateTab:
		return m.activate(ctx, d.SessionID, at)
	case model.ActionCloseTab:
		return m.close(ctx, d.SessionID, at)
	default:
		return nil
	}
}

// AttachPaymentMethod records that the payments collaborator holds a method
// for the session and moves a pending session to active.
func (m *Machine) AttachPaymentMethod(ctx context.Context, sessionID uint64) error {
	unlock, err := m.locks.Acquire(ctx, sessionID, m.lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	s, err := m.sessions.SessionByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.Status.Final() {
		log.Printf("session %d: payment method attached in %s state, ignoring", sessionID, s.Status)
		return nil
	}
	if s.PaymentOnFile && s.Status == model.SessionActive {
		return nil
	}
	s.PaymentOnFile = true
	if s.Status == model.SessionPending {
		s.Status = model.SessionActive
	}
	if err := m.sessions.UpdateSession(ctx, s); err != nil {
		return err
	}
	m.publish(ctx, s)
	return nil
}

// ManualClose closes an active session from a staff action.  It behaves
// exactly like a close_tab trigger decision.
func (m *Machine) ManualClose(ctx context.Context, sessionID uint64) error {
	return m.close(ctx, sessionID, time.Now().UTC())
}

// Cancel moves a pending or active session to cancelled.  Cancelling a
// final session is a logged no-op.
func (m *Machine) Cancel(ctx context.Context, sessionID uint64) error {
	unlock, err := m.locks.Acquire(ctx, sessionID, m.lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	s, err := m.sessions.SessionByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.Status.Final() {
		log.Printf("session %d: cancel in %s state, ignoring", sessionID, s.Status)
		return nil
	}
	s.Status = model.SessionCancelled
	if err := m.sessions.UpdateSession(ctx, s); err != nil {
		return err
	}
	m.publish(ctx, s)
	return nil
}

// activate moves pending → active, setting entryTime once.  A repeat
// activation of an already-active session changes nothing.
func (m *Machine) activate(ctx context.Context, sessionID uint64, at time.Time) error {
	unlock, err := m.locks.Acquire(ctx, sessionID, m.lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	s, err := m.sessions.SessionByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.Status.Final() {
		log.Printf("session %d: activate_tab in %s state, ignoring", sessionID, s.Status)
		return nil
	}
	if s.Status == model.SessionActive && s.EntryTime != nil {
		return nil
	}
	s.Status = model.SessionActive
	if s.EntryTime == nil {
		t := at
		s.EntryTime = &t
	}
	if err := m.sessions.UpdateSession(ctx, s); err != nil {
		return err
	}
	m.publish(ctx, s)
	return nil
}

// close moves active → closed: exitTime is set once, the final totals are
// recomputed under the lock, and settlement is requested after the lock is
// released.  close_tab against a non-active session is a logged no-op.
func (m *Machine) close(ctx context.Context, sessionID uint64, at time.Time) error {
	unlock, err := m.locks.Acquire(ctx, sessionID, m.lockTimeout)
	if err != nil {
		return err
	}

	s, err := m.sessions.SessionByID(ctx, sessionID)
	if err != nil {
		unlock()
		return err
	}
	if s.Status != model.SessionActive {
		unlock()
		log.Printf("session %d: close_tab in %s state, ignoring", sessionID, s.Status)
		return nil
	}
	s.Status = model.SessionClosed
	if s.ExitTime == nil {
		t := at
		s.ExitTime = &t
	}
	// Recompute persists the full session row, status included.
	if err := m.ledger.Recompute(ctx, s); err != nil {
		unlock()
		return err
	}
	m.publish(ctx, s)
	unlock()

	// Settlement talks to an external collaborator and must not run under
	// the session lock.  Its outcome never re-opens the tab.
	m.settle(ctx, s)
	return nil
}

// settle asks the gateway to charge the tab and records the outcome as the
// session's settlement status.
func (m *Machine) settle(ctx context.Context, s *model.Session) {
	onFile, err := m.gateway.HasPaymentMethod(ctx, s.ID)
	if err != nil {
		log.Printf("session %d: payment method lookup failed: %v", s.ID, err)
		m.markSettlement(ctx, s.ID, model.SettlementFailed)
		return
	}
	if !onFile {
		log.Printf("session %d: closed without a payment method on file", s.ID)
		m.markSettlement(ctx, s.ID, model.SettlementFailed)
		return
	}
	if err := m.gateway.Settle(ctx, s); err != nil {
		log.Printf("session %d: settlement request failed: %v", s.ID, err)
		m.markSettlement(ctx, s.ID, model.SettlementFailed)
		return
	}
	m.markSettlement(ctx, s.ID, model.SettlementRequested)
}

// markSettlement records the settlement outcome and notifies subscribers;
// a failure shows up on staff terminals as a follow-up state.
func (m *Machine) markSettlement(ctx context.Context, sessionID uint64, status model.SettlementStatus) {
	unlock, err := m.locks.Acquire(ctx, sessionID, m.lockTimeout)
	if err != nil {
		log.Printf("session %d: settlement status not recorded: %v", sessionID, err)
		return
	}
	defer unlock()

	s, err := m.sessions.SessionByID(ctx, sessionID)
	if err != nil {
		log.Printf("session %d: settlement status not recorded: %v", sessionID, err)
		return
	}
	if s.SettlementStatus == status {
		return
	}
	s.SettlementStatus = status
	if err := m.sessions.UpdateSession(ctx, s); err != nil {
		log.Printf("session %d: settlement status not recorded: %v", sessionID, err)
		return
	}
	m.publish(ctx, s)
}

// publish emits session-update to the session topic, then the staff topic.
func (m *Machine) publish(ctx context.Context, s *model.Session) {
	p := broadcast.SessionPayload(s)
	if err := m.bus.Publish(ctx, broadcast.SessionTopic(s.ID), broadcast.EventSessionUpdate, p); err != nil {
		log.Printf("session: publish session topic: %v", err)
	}
	if err := m.bus.Publish(ctx, broadcast.StaffTopic(s.VenueID), broadcast.EventSessionUpdate, p); err != nil {
		log.Printf("session: publish staff topic: %v", err)
	}
}
