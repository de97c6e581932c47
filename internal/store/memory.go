package store

import (
	"context"
	"sync"
	"time"

	"github.com/openvenue/bartab/internal/model"
)

// Memory is an in-process implementation of every store interface, guarded
// by a single mutex.  It backs the test suite and the degraded mode the
// server falls into when no database is configured.  Data does not survive
// a restart.
type Memory struct {
	mu       sync.Mutex
	nextID   uint64
	venues   map[uint64]model.Venue
	beacons  map[uint64]model.Beacon
	zones    map[uint64]model.Zone
	links    []model.ZoneBeacon
	sessions map[uint64]model.Session
	items    map[uint64]model.TabItem
	staff    map[uint64]model.Staff
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		venues:   make(map[uint64]model.Venue),
		beacons:  make(map[uint64]model.Beacon),
		zones:    make(map[uint64]model.Zone),
		sessions: make(map[uint64]model.Session),
		items:    make(map[uint64]model.TabItem),
		staff:    make(map[uint64]model.Staff),
	}
}

func (m *Memory) nextIDLocked() uint64 {
	m.nextID++
	return m.nextID
}

// AddVenue seeds a venue and returns its assigned ID.
func (m *Memory) AddVenue(v model.Venue) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.ID == 0 {
		v.ID = m.nextIDLocked()
	}
	m.venues[v.ID] = v
	return v.ID
}

// AddBeacon seeds a beacon and returns its assigned ID.
func (m *Memory) AddBeacon(b model.Beacon) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == 0 {
		b.ID = m.nextIDLocked()
	}
	if b.Threshold == 0 {
		b.Threshold = model.DefaultProximityThreshold
	}
	m.beacons[b.ID] = b
	return b.ID
}

// AddZone seeds a zone covering the given beacons and returns its ID.
func (m *Memory) AddZone(z model.Zone, beaconIDs ...uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if z.ID == 0 {
		z.ID = m.nextIDLocked()
	}
	m.zones[z.ID] = z
	for _, bid := range beaconIDs {
		m.links = append(m.links, model.ZoneBeacon{ZoneID: z.ID, BeaconID: bid})
	}
	return z.ID
}

// AddStaff seeds a staff account and returns its assigned ID.
func (m *Memory) AddStaff(s model.Staff) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.nextIDLocked()
	}
	m.staff[s.ID] = s
	return s.ID
}

// VenueByID returns the venue or ErrVenueNotFound.
func (m *Memory) VenueByID(_ context.Context, id uint64) (*model.Venue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.venues[id]
	if !ok {
		return nil, ErrVenueNotFound
	}
	return &v, nil
}

// CreateSession assigns an ID and stores the session.
func (m *Memory) CreateSession(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.nextIDLocked()
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	m.sessions[s.ID] = *s
	return nil
}

// SessionByID returns a copy of the session or ErrSessionNotFound.
func (m *Memory) SessionByID(_ context.Context, id uint64) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

// SessionByPatronKey returns the session holding the given patron key.
func (m *Memory) SessionByPatronKey(_ context.Context, key string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.PatronKey == key {
			out := s
			return &out, nil
		}
	}
	return nil, ErrSessionNotFound
}

// UpdateSession overwrites the mutable fields of an existing session.
func (m *Memory) UpdateSession(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.ID]
	if !ok {
		return ErrSessionNotFound
	}
	cur.Status = s.Status
	cur.EntryTime = s.EntryTime
	cur.ExitTime = s.ExitTime
	cur.SubtotalCents = s.SubtotalCents
	cur.TipCents = s.TipCents
	cur.TotalCents = s.TotalCents
	cur.PaymentOnFile = s.PaymentOnFile
	cur.SettlementStatus = s.SettlementStatus
	cur.UpdatedAt = time.Now().UTC()
	m.sessions[s.ID] = cur
	s.UpdatedAt = cur.UpdatedAt
	return nil
}

// InsertItem assigns an ID and stores the item.
func (m *Memory) InsertItem(_ context.Context, it *model.TabItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[it.SessionID]; !ok {
		return ErrSessionNotFound
	}
	it.ID = m.nextIDLocked()
	it.CreatedAt = time.Now().UTC()
	m.items[it.ID] = *it
	return nil
}

// DeleteItem removes the item if it belongs to the session.
func (m *Memory) DeleteItem(_ context.Context, sessionID, itemID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	if !ok || it.SessionID != sessionID {
		return ErrItemNotFound
	}
	delete(m.items, itemID)
	return nil
}

// ItemsBySession returns the session's items ordered by insertion.
func (m *Memory) ItemsBySession(_ context.Context, sessionID uint64) ([]model.TabItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TabItem
	for _, it := range m.items {
		if it.SessionID == sessionID {
			out = append(out, it)
		}
	}
	// Map iteration order is random; callers only sum, but keep output stable
	// by ID for display paths.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].ID > out[j].ID; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out, nil
}

// ListActiveBeacons returns all active beacons.
func (m *Memory) ListActiveBeacons(_ context.Context) ([]model.Beacon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Beacon
	for _, b := range m.beacons {
		if b.Active {
			out = append(out, b)
		}
	}
	return out, nil
}

// TouchLastSeen records the most recent detection time for a beacon.
func (m *Memory) TouchLastSeen(_ context.Context, beaconID uint64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.beacons[beaconID]
	if !ok {
		return ErrBeaconNotFound
	}
	t := at
	b.LastSeen = &t
	m.beacons[beaconID] = b
	return nil
}

// ListZones returns all zones.
func (m *Memory) ListZones(_ context.Context) ([]model.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Zone
	for _, z := range m.zones {
		out = append(out, z)
	}
	return out, nil
}

// ListZoneBeacons returns all zone↔beacon links.
func (m *Memory) ListZoneBeacons(_ context.Context) ([]model.ZoneBeacon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ZoneBeacon, len(m.links))
	copy(out, m.links)
	return out, nil
}

// StaffByEmail returns the staff account with the given email.
func (m *Memory) StaffByEmail(_ context.Context, email string) (*model.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.staff {
		if s.Email == email {
			out := s
			return &out, nil
		}
	}
	return nil, ErrStaffNotFound
}
