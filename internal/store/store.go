// Package store defines the persistence interfaces the engine is written
// against, together with the sentinel errors shared by all implementations.
// The MySQL repositories in internal/repository implement these interfaces
// for production; Memory (memory.go) implements them for tests and for
// running without a database.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/openvenue/bartab/internal/model"
)

// Sentinel errors returned by store implementations.  Callers compare with
// errors.Is; handlers translate them to HTTP statuses.
var (
	ErrVenueNotFound   = errors.New("venue not found")
	ErrBeaconNotFound  = errors.New("beacon not found")
	ErrZoneNotFound    = errors.New("zone not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrItemNotFound    = errors.New("tab item not found")
	ErrStaffNotFound   = errors.New("staff not found")
)

// VenueStore looks up venues.
type VenueStore interface {
	VenueByID(ctx context.Context, id uint64) (*model.Venue, error)
}

// SessionStore persists patron sessions.  UpdateSession writes all mutable
// fields (status, times, totals, settlement status) of an existing row.
type SessionStore interface {
	CreateSession(ctx context.Context, s *model.Session) error
	SessionByID(ctx context.Context, id uint64) (*model.Session, error)
	SessionByPatronKey(ctx context.Context, key string) (*model.Session, error)
	UpdateSession(ctx context.Context, s *model.Session) error
}

// TabItemStore persists tab line items.
type TabItemStore interface {
	InsertItem(ctx context.Context, it *model.TabItem) error
	// DeleteItem removes the item if it belongs to the session; it returns
	// ErrItemNotFound otherwise.
	DeleteItem(ctx context.Context, sessionID, itemID uint64) error
	ItemsBySession(ctx context.Context, sessionID uint64) ([]model.TabItem, error)
}

// BeaconStore persists beacon configuration.  TouchLastSeen is the single
// write the proximity pipeline performs against beacon rows.
type BeaconStore interface {
	ListActiveBeacons(ctx context.Context) ([]model.Beacon, error)
	TouchLastSeen(ctx context.Context, beaconID uint64, at time.Time) error
}

// ZoneStore persists zone configuration and the zone↔beacon links.
type ZoneStore interface {
	ListZones(ctx context.Context) ([]model.Zone, error)
	ListZoneBeacons(ctx context.Context) ([]model.ZoneBeacon, error)
}

// StaffStore looks up staff accounts for terminal login.
type StaffStore interface {
	StaffByEmail(ctx context.Context, email string) (*model.Staff, error)
}
