// Package ledger owns the priced line items of a session's tab.  Every
// mutation recomputes the session's subtotal and total synchronously, under
// the per-session lock, so the invariant subtotal == Σ totalPrice holds
// after every operation regardless of how many staff terminals are ringing
// items in concurrently.
package ledger

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/openvenue/bartab/internal/broadcast"
	"github.com/openvenue/bartab/internal/locks"
	"github.com/openvenue/bartab/internal/model"
	"github.com/openvenue/bartab/internal/store"
)

// Errors returned at the ledger boundary, before any mutation happens.
var (
	// ErrInvalidItem means the price or quantity fails validation.
	ErrInvalidItem = errors.New("invalid item price or quantity")
	// ErrSessionFinal means the session is closed or cancelled and its tab
	// can no longer be changed.
	ErrSessionFinal = errors.New("session is final")
)

// Ledger serializes tab mutations per session and keeps totals consistent.
type Ledger struct {
	sessions    store.SessionStore
	items       store.TabItemStore
	bus         broadcast.Broadcaster
	locks       *locks.Keyed
	lockTimeout time.Duration
}

// New builds a ledger.  The keyed lock set must be shared with the session
// state machine so lifecycle and tab mutations serialize against each other.
func New(sessions store.SessionStore, items store.TabItemStore, bus broadcast.Broadcaster, keyed *locks.Keyed, lockTimeout time.Duration) *Ledger {
	return &Ledger{
		sessions:    sessions,
		items:       items,
		bus:         bus,
		locks:       keyed,
		lockTimeout: lockTimeout,
	}
}

// AddItem validates and appends a line item, recomputes totals, and returns
// the stored item with the new subtotal.  totalPrice is computed here from
// price and quantity; a caller-supplied value is never trusted.
func (l *Ledger) AddItem(ctx context.Context, sessionID uint64, name string, priceCents, quantity uint32, addedBy *uint64) (*model.TabItem, uint32, error) {
	if name == "" || priceCents == 0 || quantity == 0 {
		return nil, 0, ErrInvalidItem
	}

	unlock, err := l.locks.Acquire(ctx, sessionID, l.lockTimeout)
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	s, err := l.sessions.SessionByID(ctx, sessionID)
	if err != nil {
		return nil, 0, err
	}
	if s.Status.Final() {
		return nil, 0, ErrSessionFinal
	}

	it := &model.TabItem{
		SessionID:       sessionID,
		Name:            name,
		PriceCents:      priceCents,
		Quantity:        quantity,
		TotalPriceCents: priceCents * quantity,
		AddedBy:         addedBy,
	}
	if err := l.items.InsertItem(ctx, it); err != nil {
		return nil, 0, err
	}
	if err := l.Recompute(ctx, s); err != nil {
		return nil, 0, err
	}
	l.publishTab(ctx, s)
	return it, s.SubtotalCents, nil
}

// RemoveItem deletes an item belonging to the session and recomputes totals,
// returning the new subtotal.  Removing an item from another session returns
// store.ErrItemNotFound.
func (l *Ledger) RemoveItem(ctx context.Context, sessionID, itemID uint64) (uint32, error) {
	unlock, err := l.locks.Acquire(ctx, sessionID, l.lockTimeout)
	if err != nil {
		return 0, err
	}
	defer unlock()

	s, err := l.sessions.SessionByID(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if s.Status.Final() {
		return 0, ErrSessionFinal
	}
	if err := l.items.DeleteItem(ctx, sessionID, itemID); err != nil {
		return 0, err
	}
	if err := l.Recompute(ctx, s); err != nil {
		return 0, err
	}
	l.publishTab(ctx, s)
	return s.SubtotalCents, nil
}

// SetTip records the tip and recomputes the total, returning the new total.
func (l *Ledger) SetTip(ctx context.Context, sessionID uint64, tipCents uint32) (uint32, error) {
	unlock, err := l.locks.Acquire(ctx, sessionID, l.lockTimeout)
	if err != nil {
		return 0, err
	}
	defer unlock()

	s, err := l.sessions.SessionByID(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if s.Status.Final() {
		return 0, ErrSessionFinal
	}
	s.TipCents = tipCents
	if err := l.Recompute(ctx, s); err != nil {
		return 0, err
	}
	l.publishTab(ctx, s)
	return s.TotalCents, nil
}

// Items returns the session's current line items.
func (l *Ledger) Items(ctx context.Context, sessionID uint64) ([]model.TabItem, error) {
	return l.items.ItemsBySession(ctx, sessionID)
}

// Recompute re-derives subtotal from the live item set and total from
// subtotal plus tip, then persists the session.  The caller must hold the
// session's lock; AddItem/RemoveItem/SetTip do, and the session state
// machine calls this during close while holding the same lock.
func (l *Ledger) Recompute(ctx context.Context, s *model.Session) error {
	items, err := l.items.ItemsBySession(ctx, s.ID)
	if err != nil {
		return err
	}
	var subtotal uint32
	for _, it := range items {
		subtotal += it.TotalPriceCents
	}
	s.SubtotalCents = subtotal
	s.TotalCents = subtotal + s.TipCents
	return l.sessions.UpdateSession(ctx, s)
}

// publishTab emits tab-update to the session topic, then the staff topic.
func (l *Ledger) publishTab(ctx context.Context, s *model.Session) {
	p := broadcast.TabPayload(s)
	if err := l.bus.Publish(ctx, broadcast.SessionTopic(s.ID), broadcast.EventTabUpdate, p); err != nil {
		log.Printf("ledger: publish session topic: %v", err)
	}
	if err := l.bus.Publish(ctx, broadcast.StaffTopic(s.VenueID), broadcast.EventTabUpdate, p); err != nil {
		log.Printf("ledger: publish staff topic: %v", err)
	}
}
