package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openvenue/bartab/internal/model"
	"github.com/openvenue/bartab/internal/registry"
	"github.com/openvenue/bartab/internal/store"
)

func TestZonesForOrdering(t *testing.T) {
	mem := store.NewMemory()
	venue := mem.AddVenue(model.Venue{Name: "bar"})
	beacon := mem.AddBeacon(model.Beacon{VenueID: venue, Name: "door", UUID: "u", Major: 1, Minor: 1, Active: true})

	// Same priority resolves by name; higher priority always wins.
	mem.AddZone(model.Zone{VenueID: venue, Name: "bravo", Priority: 3, TriggerAction: model.ActionNotification}, beacon)
	mem.AddZone(model.Zone{VenueID: venue, Name: "alpha", Priority: 3, TriggerAction: model.ActionNotification}, beacon)
	mem.AddZone(model.Zone{VenueID: venue, Name: "door", Priority: 5, TriggerAction: model.ActionActivateTab}, beacon)

	reg := registry.New(mem, mem, time.Second)
	require.NoError(t, reg.Load(context.Background()))

	zones := reg.ZonesFor(beacon)
	require.Len(t, zones, 3)
	require.Equal(t, "door", zones[0].Name)
	require.Equal(t, "alpha", zones[1].Name)
	require.Equal(t, "bravo", zones[2].Name)
}

func TestMaxDwell(t *testing.T) {
	mem := store.NewMemory()
	venue := mem.AddVenue(model.Venue{Name: "bar"})
	covered := mem.AddBeacon(model.Beacon{VenueID: venue, UUID: "u", Major: 1, Minor: 1, Active: true})
	uncovered := mem.AddBeacon(model.Beacon{VenueID: venue, UUID: "u", Major: 1, Minor: 2, Active: true})

	mem.AddZone(model.Zone{VenueID: venue, Name: "a", DwellSeconds: 2}, covered)
	mem.AddZone(model.Zone{VenueID: venue, Name: "b", DwellSeconds: 7}, covered)

	reg := registry.New(mem, mem, 3*time.Second)
	require.NoError(t, reg.Load(context.Background()))

	require.Equal(t, 7*time.Second, reg.MaxDwell(covered))
	require.Equal(t, 3*time.Second, reg.MaxDwell(uncovered))
}

func TestBeaconByRef(t *testing.T) {
	mem := store.NewMemory()
	venue := mem.AddVenue(model.Venue{Name: "bar"})
	id := mem.AddBeacon(model.Beacon{VenueID: venue, UUID: "aa", Major: 10, Minor: 20, Active: true})
	mem.AddBeacon(model.Beacon{VenueID: venue, UUID: "aa", Major: 10, Minor: 21, Active: true})

	reg := registry.New(mem, mem, time.Second)
	require.NoError(t, reg.Load(context.Background()))

	b, ok := reg.BeaconByRef(model.BeaconRef{UUID: "aa", Major: 10, Minor: 20})
	require.True(t, ok)
	require.Equal(t, id, b.ID)

	_, ok = reg.BeaconByRef(model.BeaconRef{UUID: "aa", Major: 10, Minor: 99})
	require.False(t, ok)
}

func TestInactiveBeaconExcluded(t *testing.T) {
	mem := store.NewMemory()
	venue := mem.AddVenue(model.Venue{Name: "bar"})
	id := mem.AddBeacon(model.Beacon{VenueID: venue, UUID: "u", Major: 1, Minor: 1, Active: false})

	reg := registry.New(mem, mem, time.Second)
	require.NoError(t, reg.Load(context.Background()))

	_, ok := reg.Beacon(id)
	require.False(t, ok)
}

func TestTouchLastSeenKeepsForwardMovement(t *testing.T) {
	mem := store.NewMemory()
	venue := mem.AddVenue(model.Venue{Name: "bar"})
	id := mem.AddBeacon(model.Beacon{VenueID: venue, UUID: "u", Major: 1, Minor: 1, Active: true})

	reg := registry.New(mem, mem, time.Second)
	require.NoError(t, reg.Load(context.Background()))

	later := time.Now().UTC()
	earlier := later.Add(-time.Minute)

	reg.TouchLastSeen(id, later)
	reg.TouchLastSeen(id, earlier) // out-of-order write must not regress

	got, ok := reg.LastSeen(id)
	require.True(t, ok)
	require.Equal(t, later, got)
}
