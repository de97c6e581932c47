// Package queue defines the message payloads exchanged over the broker and
// the background consumer for the detection-event feed.
package queue

import (
	"time"

	"github.com/openvenue/bartab/internal/model"
)

// DetectionQueueName is the durable queue the physical-scanning collaborator
// publishes parsed detection events to.
const DetectionQueueName = "beacon.detections"

// SettlementQueueName is the durable queue settlement requests are published
// to for the payments collaborator.
const SettlementQueueName = "tab.settlement"

// DetectionMessage is the wire form of a detection event.  Either beacon_id
// or beacon_ref identifies the beacon.
type DetectionMessage struct {
	SessionID      uint64           `json:"session_id"`
	BeaconID       uint64           `json:"beacon_id,omitempty"`
	BeaconRef      *model.BeaconRef `json:"beacon_ref,omitempty"`
	SignalStrength int              `json:"signal_strength"`
	Action         string           `json:"action"`
	ObservedAt     time.Time        `json:"observed_at"`
}

// Event converts the wire form into the model event consumed by the
// pipeline.  An unrecognized action defaults to enter, matching scanners
// that only report ranging observations.
func (m DetectionMessage) Event() model.DetectionEvent {
	action := model.DetectEnter
	if m.Action == string(model.DetectExit) {
		action = model.DetectExit
	}
	return model.DetectionEvent{
		SessionID:  m.SessionID,
		BeaconID:   m.BeaconID,
		Ref:        m.BeaconRef,
		RSSI:       m.SignalStrength,
		Action:     action,
		ObservedAt: m.ObservedAt,
	}
}

// SettlementRequestedEvent is published when a session closes and its tab
// should be charged.  It carries everything the payments collaborator needs
// without querying the primary database.
type SettlementRequestedEvent struct {
	SessionID     uint64 `json:"session_id"`
	VenueID       uint64 `json:"venue_id"`
	SubtotalCents uint32 `json:"subtotal_cents"`
	TipCents      uint32 `json:"tip_cents"`
	TotalCents    uint32 `json:"total_cents"`
	RequestedAt   string `json:"requested_at"`
}
