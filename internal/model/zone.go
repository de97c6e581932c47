package model

import "time"

// ZoneType describes what part of the venue a zone covers.  The type is
// informational for staff displays and event payloads; trigger behavior is
// controlled by TriggerAction alone.
type ZoneType string

const (
	ZoneEntry   ZoneType = "entry"
	ZoneExit    ZoneType = "exit"
	ZoneBar     ZoneType = "bar"
	ZoneSeating ZoneType = "seating"
	ZoneOther   ZoneType = "other"
)

// TriggerAction is the effect a zone has when a proximity transition is
// attributed to it.
type TriggerAction string

const (
	ActionActivateTab  TriggerAction = "activate_tab"
	ActionCloseTab     TriggerAction = "close_tab"
	ActionNotification TriggerAction = "notification"
	ActionNone         TriggerAction = "none"
)

// Zone is a staff-configured region of a venue covered by zero or more
// beacons (many-to-many via zone_beacons).  When a patron's proximity to a
// covering beacon transitions, zones compete by priority to produce at most
// one trigger decision.
//
// Fields:
//  ID            – primary key identifier.
//  VenueID       – owning venue.
//  Name          – staff-facing label; ties in priority are broken by name.
//  Type          – entry/exit/bar/seating/other.
//  TriggerAction – activate_tab/close_tab/notification/none.
//  DwellSeconds  – seconds a strong signal must persist before the zone fires.
//  Priority      – higher wins when several zones cover the same beacon.
//  CreatedAt     – creation timestamp.
type Zone struct {
	ID            uint64        // zones.id
	VenueID       uint64        // zones.venue_id
	Name          string        // zones.name
	Type          ZoneType      // zones.type
	TriggerAction TriggerAction // zones.trigger_action
	DwellSeconds  int           // zones.dwell_seconds
	Priority      int           // zones.priority
	CreatedAt     time.Time     // zones.created_at
}

// ZoneBeacon links a zone to a beacon it covers.
type ZoneBeacon struct {
	ZoneID   uint64 // zone_beacons.zone_id
	BeaconID uint64 // zone_beacons.beacon_id
}
