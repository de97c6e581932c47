// Package registry holds the venue's zone/beacon reference data in memory.
// The zone↔beacon many-to-many relation is flattened into an adjacency index
// at load time so that the per-detection lookup path never touches the
// database.  The registry is read-mostly: unlimited concurrent readers, with
// writes limited to periodic reloads and lastSeen touches.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/openvenue/bartab/internal/model"
	"github.com/openvenue/bartab/internal/store"
)

type refKey struct {
	uuid  string
	major uint16
	minor uint16
}

// Registry indexes beacons and zones for the proximity pipeline.
type Registry struct {
	beacons store.BeaconStore
	zones   store.ZoneStore

	mu            sync.RWMutex
	beaconsByID   map[uint64]model.Beacon
	beaconsByRef  map[refKey]uint64
	zonesByID     map[uint64]model.Zone
	zonesByBeacon map[uint64][]uint64 // zone IDs ordered priority DESC, name ASC
	maxDwell      map[uint64]time.Duration
	lastSeen      map[uint64]time.Time

	defaultDwell time.Duration
}

// New builds a registry over the given stores.  defaultDwell applies to
// beacons not covered by any zone (their NEAR classification still needs a
// dwell requirement).  Call Load before first use.
func New(beacons store.BeaconStore, zones store.ZoneStore, defaultDwell time.Duration) *Registry {
	return &Registry{
		beacons:      beacons,
		zones:        zones,
		defaultDwell: defaultDwell,
	}
}

// Load snapshots active beacons, zones and their links into the in-memory
// index, replacing any previous snapshot.  In-memory lastSeen values survive
// reloads.
func (r *Registry) Load(ctx context.Context) error {
	beacons, err := r.beacons.ListActiveBeacons(ctx)
	if err != nil {
		return err
	}
	zones, err := r.zones.ListZones(ctx)
	if err != nil {
		return err
	}
	links, err := r.zones.ListZoneBeacons(ctx)
	if err != nil {
		return err
	}

	byID := make(map[uint64]model.Beacon, len(beacons))
	byRef := make(map[refKey]uint64, len(beacons))
	for _, b := range beacons {
		if b.Threshold == 0 {
			b.Threshold = model.DefaultProximityThreshold
		}
		byID[b.ID] = b
		byRef[refKey{uuid: b.UUID, major: b.Major, minor: b.Minor}] = b.ID
	}

	zByID := make(map[uint64]model.Zone, len(zones))
	for _, z := range zones {
		zByID[z.ID] = z
	}

	zByBeacon := make(map[uint64][]uint64)
	for _, l := range links {
		if _, ok := byID[l.BeaconID]; !ok {
			continue // link to an inactive or deleted beacon
		}
		if _, ok := zByID[l.ZoneID]; !ok {
			continue
		}
		zByBeacon[l.BeaconID] = append(zByBeacon[l.BeaconID], l.ZoneID)
	}

	dwell := make(map[uint64]time.Duration, len(byID))
	for bid, zids := range zByBeacon {
		// Priority DESC, then name ASC for deterministic tie-breaks.
		sort.Slice(zids, func(i, j int) bool {
			zi, zj := zByID[zids[i]], zByID[zids[j]]
			if zi.Priority != zj.Priority {
				return zi.Priority > zj.Priority
			}
			return zi.Name < zj.Name
		})
		zByBeacon[bid] = zids

		max := r.defaultDwell
		for _, zid := range zids {
			if d := time.Duration(zByID[zid].DwellSeconds) * time.Second; d > max {
				max = d
			}
		}
		dwell[bid] = max
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.beaconsByID = byID
	r.beaconsByRef = byRef
	r.zonesByID = zByID
	r.zonesByBeacon = zByBeacon
	r.maxDwell = dwell
	if r.lastSeen == nil {
		r.lastSeen = make(map[uint64]time.Time)
	}
	return nil
}

// Reload re-runs Load on the given interval until the context is cancelled.
// Staff zone edits take effect on the next tick without a restart.
func (r *Registry) Reload(ctx context.Context, interval time.Duration, onErr func(error)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := r.Load(ctx); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}

// Beacon returns the beacon with the given ID, if it is active.
func (r *Registry) Beacon(id uint64) (model.Beacon, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.beaconsByID[id]
	return b, ok
}

// BeaconByRef resolves a vendor identity triple to a beacon ID.
func (r *Registry) BeaconByRef(ref model.BeaconRef) (model.Beacon, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.beaconsByRef[refKey{uuid: ref.UUID, major: ref.Major, minor: ref.Minor}]
	if !ok {
		return model.Beacon{}, false
	}
	return r.beaconsByID[id], true
}

// ZonesFor returns the zones covering a beacon, priority DESC then name ASC.
// The returned slice is owned by the caller.
func (r *Registry) ZonesFor(beaconID uint64) []model.Zone {
	r.mu.RLock()
	defer r.mu.RUnlock()
	zids := r.zonesByBeacon[beaconID]
	out := make([]model.Zone, 0, len(zids))
	for _, zid := range zids {
		out = append(out, r.zonesByID[zid])
	}
	return out
}

// MaxDwell returns the longest dwell requirement across zones covering the
// beacon, or the default when no zone covers it.
func (r *Registry) MaxDwell(beaconID uint64) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.maxDwell[beaconID]; ok {
		return d
	}
	return r.defaultDwell
}

// TouchLastSeen records a detection time in memory.  The durable write
// happens out of band; the hot path never blocks on the database.
func (r *Registry) TouchLastSeen(beaconID uint64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.lastSeen[beaconID]; !ok || at.After(cur) {
		r.lastSeen[beaconID] = at
	}
}

// LastSeen returns the most recent in-memory detection time for a beacon.
func (r *Registry) LastSeen(beaconID uint64) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.lastSeen[beaconID]
	return t, ok
}
