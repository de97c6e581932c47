package model

import "time"

// TabItem is one priced line on a session's tab.  TotalPriceCents is always
// derived as PriceCents * Quantity on the server; callers never supply it.
// Corrections are a remove followed by a fresh add, never an in-place edit.
//
// Fields:
//  ID              – primary key identifier.
//  SessionID       – owning session.
//  Name            – item description ("IPA pint").
//  PriceCents      – unit price in cents, must be positive.
//  Quantity        – number of units, must be at least one.
//  TotalPriceCents – PriceCents * Quantity, derived.
//  AddedBy         – staff account that rang the item in (nullable).
//  CreatedAt       – creation timestamp.
type TabItem struct {
	ID              uint64    // tab_items.id
	SessionID       uint64    // tab_items.session_id
	Name            string    // tab_items.name
	PriceCents      uint32    // tab_items.price_cents
	Quantity        uint32    // tab_items.quantity
	TotalPriceCents uint32    // tab_items.total_price_cents
	AddedBy         *uint64   // tab_items.added_by (nullable)
	CreatedAt       time.Time // tab_items.created_at
}
