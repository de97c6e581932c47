package proximity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openvenue/bartab/internal/model"
	"github.com/openvenue/bartab/internal/proximity"
	"github.com/openvenue/bartab/internal/registry"
	"github.com/openvenue/bartab/internal/store"
)

// newFixture builds a registry with one beacon covered by a zone with the
// given dwell requirement.
func newFixture(t *testing.T, dwellSeconds int) (*registry.Registry, uint64) {
	t.Helper()
	mem := store.NewMemory()
	venue := mem.AddVenue(model.Venue{Name: "bar"})
	beacon := mem.AddBeacon(model.Beacon{VenueID: venue, UUID: "u", Major: 1, Minor: 1, Active: true})
	mem.AddZone(model.Zone{VenueID: venue, Name: "door", DwellSeconds: dwellSeconds, TriggerAction: model.ActionActivateTab}, beacon)

	reg := registry.New(mem, mem, 0)
	require.NoError(t, reg.Load(context.Background()))
	return reg, beacon
}

func event(beaconID uint64, rssi int, at time.Time) model.DetectionEvent {
	return model.DetectionEvent{
		SessionID:  1,
		BeaconID:   beaconID,
		RSSI:       rssi,
		Action:     model.DetectEnter,
		ObservedAt: at,
	}
}

func TestDwellHysteresis(t *testing.T) {
	reg, beacon := newFixture(t, 2)
	c := proximity.NewClassifier(reg, 10*time.Second)
	base := time.Now().UTC()

	// A strong reading held for less than the dwell requirement does not
	// produce a transition.
	tr, err := c.Observe(event(beacon, -60, base))
	require.NoError(t, err)
	require.Nil(t, tr)

	tr, err = c.Observe(event(beacon, -60, base.Add(1*time.Second)))
	require.NoError(t, err)
	require.Nil(t, tr)

	// The same signal held continuously for the dwell produces exactly one
	// NEAR transition.
	tr, err = c.Observe(event(beacon, -60, base.Add(2*time.Second)))
	require.NoError(t, err)
	require.NotNil(t, tr)
	require.Equal(t, proximity.Near, tr.State)

	tr, err = c.Observe(event(beacon, -60, base.Add(3*time.Second)))
	require.NoError(t, err)
	require.Nil(t, tr, "repeat strong readings must not re-emit NEAR")
}

func TestWeakReadingBreaksStretch(t *testing.T) {
	reg, beacon := newFixture(t, 2)
	c := proximity.NewClassifier(reg, 10*time.Second)
	base := time.Now().UTC()

	_, err := c.Observe(event(beacon, -60, base))
	require.NoError(t, err)

	// A weak reading resets the continuous-strong stretch without flapping
	// the classification to FAR.
	tr, err := c.Observe(event(beacon, -90, base.Add(1*time.Second)))
	require.NoError(t, err)
	require.Nil(t, tr)
	require.Equal(t, proximity.Far, c.State(beacon))

	// The stretch restarts: two seconds of strong signal are needed again.
	tr, err = c.Observe(event(beacon, -60, base.Add(2*time.Second)))
	require.NoError(t, err)
	require.Nil(t, tr)

	tr, err = c.Observe(event(beacon, -60, base.Add(4*time.Second)))
	require.NoError(t, err)
	require.NotNil(t, tr)
	require.Equal(t, proximity.Near, tr.State)
}

func TestStaleEventDropped(t *testing.T) {
	reg, beacon := newFixture(t, 0)
	c := proximity.NewClassifier(reg, 10*time.Second)
	base := time.Now().UTC()

	tr, err := c.Observe(event(beacon, -60, base))
	require.NoError(t, err)
	require.NotNil(t, tr) // dwell 0: first strong reading is NEAR

	// An event timestamped before the last applied one is dropped and does
	// not alter classification state.
	_, err = c.Observe(event(beacon, -90, base.Add(-time.Second)))
	require.ErrorIs(t, err, proximity.ErrStaleEvent)
	require.Equal(t, proximity.Near, c.State(beacon))
}

func TestUnknownBeacon(t *testing.T) {
	reg, _ := newFixture(t, 0)
	c := proximity.NewClassifier(reg, 10*time.Second)

	_, err := c.Observe(event(999, -60, time.Now().UTC()))
	require.ErrorIs(t, err, proximity.ErrUnknownBeacon)
}

func TestSweepEmitsFarAfterSilence(t *testing.T) {
	reg, beacon := newFixture(t, 0)
	c := proximity.NewClassifier(reg, 10*time.Second)
	base := time.Now().UTC()

	tr, err := c.Observe(event(beacon, -60, base))
	require.NoError(t, err)
	require.NotNil(t, tr)

	// Inside the grace period nothing happens.
	require.Empty(t, c.Sweep(base.Add(5*time.Second)))

	out := c.Sweep(base.Add(10 * time.Second))
	require.Len(t, out, 1)
	require.Equal(t, proximity.Far, out[0].State)
	require.Equal(t, uint64(1), out[0].SessionID)

	// Already FAR: a second sweep emits nothing.
	require.Empty(t, c.Sweep(base.Add(20*time.Second)))
}

func TestExplicitExitForcesFar(t *testing.T) {
	reg, beacon := newFixture(t, 0)
	c := proximity.NewClassifier(reg, 10*time.Second)
	base := time.Now().UTC()

	tr, err := c.Observe(event(beacon, -60, base))
	require.NoError(t, err)
	require.NotNil(t, tr)

	ex := model.DetectionEvent{
		SessionID:  1,
		BeaconID:   beacon,
		Action:     model.DetectExit,
		ObservedAt: base.Add(time.Second),
	}
	tr, err = c.Observe(ex)
	require.NoError(t, err)
	require.NotNil(t, tr)
	require.Equal(t, proximity.Far, tr.State)

	// Exit while already FAR is absorbed silently.
	ex.ObservedAt = base.Add(2 * time.Second)
	tr, err = c.Observe(ex)
	require.NoError(t, err)
	require.Nil(t, tr)
}
