package model

import "time"

// DetectionAction distinguishes the scanner's own judgement of the event.
// enter is a regular ranging observation; exit is an explicit region-exit
// callback from the scanning hardware.
type DetectionAction string

const (
	DetectEnter DetectionAction = "enter"
	DetectExit  DetectionAction = "exit"
)

// DetectionEvent is one parsed observation from the physical-scanning
// collaborator.  Events are ephemeral: they are consumed once by the
// proximity classifier and never persisted.  Either BeaconID or Ref
// identifies the beacon; when both are present BeaconID wins.
type DetectionEvent struct {
	SessionID  uint64          `json:"session_id"`
	BeaconID   uint64          `json:"beacon_id,omitempty"`
	Ref        *BeaconRef      `json:"beacon_ref,omitempty"`
	RSSI       int             `json:"signal_strength"`
	Action     DetectionAction `json:"action"`
	ObservedAt time.Time       `json:"observed_at"`
}
