package model

import "time"

// SessionStatus is the lifecycle state of a patron visit.  closed and
// cancelled are terminal.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionActive    SessionStatus = "active"
	SessionClosed    SessionStatus = "closed"
	SessionCancelled SessionStatus = "cancelled"
)

// Final reports whether the status is terminal.
func (s SessionStatus) Final() bool {
	return s == SessionClosed || s == SessionCancelled
}

// SettlementStatus tracks the payment follow-up for a closed session.  A
// settlement failure never re-opens the tab; it is surfaced to staff as a
// distinct state instead.
type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "pending"
	SettlementRequested SettlementStatus = "requested"
	SettlementSettled   SettlementStatus = "settled"
	SettlementFailed    SettlementStatus = "failed"
)

// Session records one patron visit from QR scan to settlement.  Status and
// the entry/exit timestamps are mutated exclusively by the session state
// machine; totals are mutated exclusively by the tab ledger under the
// per-session lock.
//
// Fields:
//  ID               – primary key identifier.
//  VenueID          – venue the session belongs to.
//  PatronKey        – opaque token issued to the patron's device at QR scan.
//  TableLabel       – the table code that was scanned.
//  Status           – pending/active/closed/cancelled.
//  EntryTime        – set once, on first activation (nullable).
//  ExitTime         – set once, on close (nullable).
//  SubtotalCents    – sum of item total prices, recomputed on every mutation.
//  TipCents         – tip amount.
//  TotalCents       – SubtotalCents + TipCents.
//  PaymentOnFile    – whether the payments collaborator holds a method for
//                     this session (read-only here).
//  SettlementStatus – pending/requested/settled/failed.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Session struct {
	ID               uint64           // sessions.id
	VenueID          uint64           // sessions.venue_id
	PatronKey        string           // sessions.patron_key
	TableLabel       string           // sessions.table_label
	Status           SessionStatus    // sessions.status
	EntryTime        *time.Time       // sessions.entry_time (nullable)
	ExitTime         *time.Time       // sessions.exit_time (nullable)
	SubtotalCents    uint32           // sessions.subtotal_cents
	TipCents         uint32           // sessions.tip_cents
	TotalCents       uint32           // sessions.total_cents
	PaymentOnFile    bool             // sessions.payment_on_file
	SettlementStatus SettlementStatus // sessions.settlement_status
	CreatedAt        time.Time        // sessions.created_at
	UpdatedAt        time.Time        // sessions.updated_at
}
