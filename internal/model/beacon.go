package model

import "time"

// DefaultProximityThreshold is the signal-strength floor (dBm) applied to
// beacons that do not configure their own. Readings at or above this value
// count as "strong" for proximity classification.
const DefaultProximityThreshold = -65

// BeaconRef is the vendor identity triple broadcast by a physical beacon.
// Scanners report this triple; the registry maps it back to a beacon row.
type BeaconRef struct {
	UUID  string `json:"uuid"`
	Major uint16 `json:"major"`
	Minor uint16 `json:"minor"`
}

// Beacon is a physical short-range radio transmitter installed at a venue.
// Each beacon is owned by exactly one venue and may be covered by any number
// of zones.  Staff configuration creates and updates beacons; the proximity
// pipeline only ever touches LastSeen.
//
// Fields:
//  ID        – primary key identifier.
//  VenueID   – owning venue.
//  Name      – staff-facing label ("bar left", "front door").
//  UUID      – vendor namespace UUID.
//  Major     – vendor major number.
//  Minor     – vendor minor number.
//  Threshold – signal-strength floor in dBm; readings at or above it are strong.
//  Active    – inactive beacons are excluded from the registry.
//  LastSeen  – time of the most recent detection naming this beacon (nullable).
//  CreatedAt – creation timestamp.
type Beacon struct {
	ID        uint64     // beacons.id
	VenueID   uint64     // beacons.venue_id
	Name      string     // beacons.name
	UUID      string     // beacons.uuid
	Major     uint16     // beacons.major
	Minor     uint16     // beacons.minor
	Threshold int        // beacons.threshold_dbm
	Active    bool       // beacons.active
	LastSeen  *time.Time // beacons.last_seen (nullable)
	CreatedAt time.Time  // beacons.created_at
}

// Ref returns the beacon's vendor identity triple.
func (b Beacon) Ref() BeaconRef {
	return BeaconRef{UUID: b.UUID, Major: b.Major, Minor: b.Minor}
}
