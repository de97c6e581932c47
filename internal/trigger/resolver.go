// Package trigger resolves proximity transitions into at most one zone
// decision.  Zones covering the same beacon compete by priority; lower
// priority zones are suppressed for that event so a bar beacon and an exit
// beacon cannot both fire for the same physical movement.
package trigger

import (
	"github.com/openvenue/bartab/internal/model"
	"github.com/openvenue/bartab/internal/proximity"
)

// Zones is the registry lookup the resolver depends on.  The returned slice
// must be ordered priority DESC, then name ASC.
type Zones interface {
	ZonesFor(beaconID uint64) []model.Zone
}

// Decision is the outcome of resolving one transition.  The zero Decision
// means no zone qualified (not an error — downstream is a no-op).
type Decision struct {
	SessionID uint64
	BeaconID  uint64
	ZoneID    uint64
	ZoneName  string
	ZoneType  model.ZoneType
	Action    model.TriggerAction
}

// None reports whether the decision carries no action.
func (d Decision) None() bool {
	return d.Action == "" || d.Action == model.ActionNone
}

// Resolver picks the firing zone for a transition.
type Resolver struct {
	zones Zones
}

// NewResolver builds a resolver over the given zone lookup.
func NewResolver(zones Zones) *Resolver {
	return &Resolver{zones: zones}
}

// Resolve returns the single decision for a transition.  NEAR transitions
// fire the first zone whose action is activate_tab or notification; FAR
// transitions fire the first zone whose action is close_tab.  Every zone is
// independently eligible again on the next transition.
func (r *Resolver) Resolve(sessionID, beaconID uint64, state proximity.State) Decision {
	for _, z := range r.zones.ZonesFor(beaconID) {
		var fires bool
		switch state {
		case proximity.Near:
			fires = z.TriggerAction == model.ActionActivateTab || z.TriggerAction == model.ActionNotification
		case proximity.Far:
			fires = z.TriggerAction == model.ActionCloseTab
		}
		if fires {
			return Decision{
				SessionID: sessionID,
				BeaconID:  beaconID,
				ZoneID:    z.ID,
				ZoneName:  z.Name,
				ZoneType:  z.Type,
				Action:    z.TriggerAction,
			}
		}
	}
	return Decision{SessionID: sessionID, BeaconID: beaconID, Action: model.ActionNone}
}
