package model

import "time"

// Venue represents a single bar or restaurant location.  All beacons,
// zones, sessions and staff accounts hang off a venue.  Venues are
// provisioned by an administrative surface outside this service.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name shown on staff terminals.
//  Timezone  – IANA timezone name used when rendering times.
//  CreatedAt – creation timestamp.
type Venue struct {
	ID        uint64    // venues.id
	Name      string    // venues.name
	Timezone  string    // venues.timezone
	CreatedAt time.Time // venues.created_at
}
