package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openvenue/bartab/internal/broadcast"
	"github.com/openvenue/bartab/internal/ledger"
	"github.com/openvenue/bartab/internal/locks"
	"github.com/openvenue/bartab/internal/model"
	"github.com/openvenue/bartab/internal/proximity"
	"github.com/openvenue/bartab/internal/registry"
	"github.com/openvenue/bartab/internal/service"
	"github.com/openvenue/bartab/internal/session"
	"github.com/openvenue/bartab/internal/store"
	"github.com/openvenue/bartab/internal/trigger"
)

type fakeGateway struct {
	mu      sync.Mutex
	settled []model.Session
}

func (g *fakeGateway) HasPaymentMethod(context.Context, uint64) (bool, error) { return true, nil }

func (g *fakeGateway) Settle(_ context.Context, s *model.Session) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.settled = append(g.settled, *s)
	return nil
}

type fixture struct {
	mem      *store.Memory
	pipeline *service.Pipeline
	machine  *session.Machine
	ledger   *ledger.Ledger
	gateway  *fakeGateway
	venueID  uint64
	entry    uint64 // beacon at the entry zone (activate_tab)
	exit     uint64 // beacon at the exit zone (close_tab)
}

// newFixture wires a venue with an entry zone that activates tabs and an
// exit zone that closes them, each covered by its own beacon.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	venue := mem.AddVenue(model.Venue{Name: "bar"})
	entry := mem.AddBeacon(model.Beacon{VenueID: venue, UUID: "aa", Major: 1, Minor: 1, Active: true})
	exit := mem.AddBeacon(model.Beacon{VenueID: venue, UUID: "aa", Major: 1, Minor: 2, Active: true})
	mem.AddZone(model.Zone{
		VenueID: venue, Name: "entry", Type: model.ZoneEntry,
		TriggerAction: model.ActionActivateTab, Priority: 10, DwellSeconds: 2,
	}, entry)
	mem.AddZone(model.Zone{
		VenueID: venue, Name: "exit", Type: model.ZoneExit,
		TriggerAction: model.ActionCloseTab, Priority: 10,
	}, exit)

	reg := registry.New(mem, mem, 0)
	require.NoError(t, reg.Load(context.Background()))

	bus := broadcast.NewMemory()
	keyed := locks.NewKeyed()
	led := ledger.New(mem, mem, bus, keyed, 5*time.Second)
	gw := &fakeGateway{}
	mach := session.NewMachine(mem, led, gw, bus, keyed, 5*time.Second)

	cls := proximity.NewClassifier(reg, 10*time.Second)
	res := trigger.NewResolver(reg)
	p := service.NewPipeline(reg, cls, res, mach, mem, bus)

	return &fixture{
		mem: mem, pipeline: p, machine: mach, ledger: led, gateway: gw,
		venueID: venue, entry: entry, exit: exit,
	}
}

func detection(sessionID, beaconID uint64, rssi int, action model.DetectionAction, at time.Time) model.DetectionEvent {
	return model.DetectionEvent{
		SessionID:  sessionID,
		BeaconID:   beaconID,
		RSSI:       rssi,
		Action:     action,
		ObservedAt: at,
	}
}

// TestVisitEndToEnd walks a whole visit through the pipeline: the patron
// dwells at the entry, rings up two rounds, then walks out past the exit
// beacon.  The session must end closed with the final subtotal settled.
func TestVisitEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Now().UTC()

	s, err := f.machine.Create(ctx, f.venueID, "T4")
	require.NoError(t, err)
	require.Equal(t, model.SessionPending, s.Status)

	// Entry beacon: strong readings for the 2s dwell.
	require.NoError(t, f.pipeline.HandleDetection(ctx, detection(s.ID, f.entry, -58, model.DetectEnter, base)))
	require.NoError(t, f.pipeline.HandleDetection(ctx, detection(s.ID, f.entry, -60, model.DetectEnter, base.Add(time.Second))))

	got, err := f.mem.SessionByID(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, model.SessionPending, got.Status, "dwell not met yet")

	require.NoError(t, f.pipeline.HandleDetection(ctx, detection(s.ID, f.entry, -59, model.DetectEnter, base.Add(2*time.Second))))

	got, err = f.mem.SessionByID(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, model.SessionActive, got.Status)
	require.NotNil(t, got.EntryTime)

	// Two rounds on the tab.
	_, _, err = f.ledger.AddItem(ctx, s.ID, "IPA pint", 850, 2, nil)
	require.NoError(t, err)
	_, subtotal, err := f.ledger.AddItem(ctx, s.ID, "burger", 1250, 1, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(2950), subtotal)

	// The patron passes the exit beacon on the way out: first near it (the
	// exit zone has no NEAR action, so nothing changes), then the reader
	// reports the departure.
	require.NoError(t, f.pipeline.HandleDetection(ctx, detection(s.ID, f.exit, -55, model.DetectEnter, base.Add(10*time.Minute))))

	got, err = f.mem.SessionByID(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, model.SessionActive, got.Status)

	require.NoError(t, f.pipeline.HandleDetection(ctx, detection(s.ID, f.exit, 0, model.DetectExit, base.Add(10*time.Minute+time.Second))))

	got, err = f.mem.SessionByID(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, model.SessionClosed, got.Status)
	require.NotNil(t, got.ExitTime)
	require.Equal(t, uint32(2950), got.SubtotalCents)
	require.Equal(t, model.SettlementRequested, got.SettlementStatus)

	require.Len(t, f.gateway.settled, 1)
	require.Equal(t, uint32(2950), f.gateway.settled[0].SubtotalCents)
}

// TestSweeperClosesSilentSession covers the patron who walks out of range
// without an exit detection: the staleness sweep turns silence into FAR and
// the exit zone closes the tab.
func TestSweeperClosesSilentSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Minute)

	s, err := f.machine.Create(ctx, f.venueID, "T4")
	require.NoError(t, err)
	require.NoError(t, f.machine.AttachPaymentMethod(ctx, s.ID))

	// Near the exit beacon, then silence.
	require.NoError(t, f.pipeline.HandleDetection(ctx, detection(s.ID, f.exit, -55, model.DetectEnter, base)))

	done := make(chan struct{})
	sweepCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(done)
		f.pipeline.RunSweeper(sweepCtx, 10*time.Millisecond)
	}()

	require.Eventually(t, func() bool {
		got, err := f.mem.SessionByID(ctx, s.ID)
		return err == nil && got.Status == model.SessionClosed
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}

func TestStaleDetectionIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Now().UTC()

	s, err := f.machine.Create(ctx, f.venueID, "T4")
	require.NoError(t, err)

	// exit zone, dwell 0: NEAR on first strong reading.
	require.NoError(t, f.pipeline.HandleDetection(ctx, detection(s.ID, f.exit, -55, model.DetectEnter, base)))
	// A replayed exit from before the last applied event must not close the
	// session.
	require.NoError(t, f.pipeline.HandleDetection(ctx, detection(s.ID, f.exit, 0, model.DetectExit, base.Add(-time.Second))))

	got, err := f.mem.SessionByID(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, model.SessionPending, got.Status)
}

func TestUnknownBeaconIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.machine.Create(ctx, f.venueID, "T4")
	require.NoError(t, err)

	// Foreign hardware in range is dropped without failing the feed.
	require.NoError(t, f.pipeline.HandleDetection(ctx, detection(s.ID, 999, -40, model.DetectEnter, time.Now().UTC())))

	ev := model.DetectionEvent{
		SessionID:  s.ID,
		Ref:        &model.BeaconRef{UUID: "nope", Major: 9, Minor: 9},
		RSSI:       -40,
		Action:     model.DetectEnter,
		ObservedAt: time.Now().UTC(),
	}
	require.NoError(t, f.pipeline.HandleDetection(ctx, ev))

	got, err := f.mem.SessionByID(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, model.SessionPending, got.Status)
}

// TestBeaconRefResolution feeds a detection that carries only the
// uuid/major/minor triple, the shape reader hardware actually reports.
func TestBeaconRefResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.machine.Create(ctx, f.venueID, "T4")
	require.NoError(t, err)

	ev := model.DetectionEvent{
		SessionID:  s.ID,
		Ref:        &model.BeaconRef{UUID: "aa", Major: 1, Minor: 2},
		RSSI:       -55,
		Action:     model.DetectEnter,
		ObservedAt: time.Now().UTC(),
	}
	require.NoError(t, f.pipeline.HandleDetection(ctx, ev))

	// The triple resolved to the exit beacon: the departure that follows
	// must close the tab.
	exitEv := model.DetectionEvent{
		SessionID:  s.ID,
		Ref:        &model.BeaconRef{UUID: "aa", Major: 1, Minor: 2},
		Action:     model.DetectExit,
		ObservedAt: time.Now().UTC().Add(time.Second),
	}
	require.NoError(t, f.machine.AttachPaymentMethod(ctx, s.ID))
	require.NoError(t, f.pipeline.HandleDetection(ctx, exitEv))

	got, err := f.mem.SessionByID(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, model.SessionClosed, got.Status)
}
