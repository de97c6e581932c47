package broadcast

import (
	"time"

	"github.com/openvenue/bartab/internal/model"
)

// SessionUpdatePayload is the body of a session-update event.
type SessionUpdatePayload struct {
	SessionID        uint64                 `json:"session_id"`
	Status           model.SessionStatus    `json:"status"`
	EntryTime        *time.Time             `json:"entry_time,omitempty"`
	ExitTime         *time.Time             `json:"exit_time,omitempty"`
	SettlementStatus model.SettlementStatus `json:"settlement_status,omitempty"`
}

// TabUpdatePayload is the body of a tab-update event.
type TabUpdatePayload struct {
	SessionID     uint64 `json:"session_id"`
	SubtotalCents uint32 `json:"subtotal_cents"`
	TipCents      uint32 `json:"tip_cents"`
	TotalCents    uint32 `json:"total_cents"`
}

// MovementZone describes a zone involved in a movement event.
type MovementZone struct {
	ID   uint64         `json:"id"`
	Name string         `json:"name"`
	Type model.ZoneType `json:"type"`
}

// MovementTrigger describes a trigger decision attached to a movement event.
type MovementTrigger struct {
	ZoneID uint64              `json:"zone_id"`
	Action model.TriggerAction `json:"action"`
	Type   model.ZoneType      `json:"type"`
}

// PatronMovementPayload is the body of a patron-movement event, published
// for every proximity transition so staff terminals can show where patrons
// are and which zones fired.
type PatronMovementPayload struct {
	SessionID uint64            `json:"session_id"`
	BeaconID  uint64            `json:"beacon_id"`
	Action    string            `json:"action"`
	Zones     []MovementZone    `json:"zones"`
	Triggers  []MovementTrigger `json:"triggers"`
}

// SessionPayload builds the session-update body from a session row.
func SessionPayload(s *model.Session) SessionUpdatePayload {
	return SessionUpdatePayload{
		SessionID:        s.ID,
		Status:           s.Status,
		EntryTime:        s.EntryTime,
		ExitTime:         s.ExitTime,
		SettlementStatus: s.SettlementStatus,
	}
}

// TabPayload builds the tab-update body from a session row.
func TabPayload(s *model.Session) TabUpdatePayload {
	return TabUpdatePayload{
		SessionID:     s.ID,
		SubtotalCents: s.SubtotalCents,
		TipCents:      s.TipCents,
		TotalCents:    s.TotalCents,
	}
}
