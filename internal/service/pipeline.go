// Package service wires the proximity pipeline together: detection event →
// classifier → trigger resolver → session state machine → broadcast.  It is
// the only place that sees a detection end to end; the components it drives
// stay independently testable.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/openvenue/bartab/internal/broadcast"
	"github.com/openvenue/bartab/internal/locks"
	"github.com/openvenue/bartab/internal/model"
	"github.com/openvenue/bartab/internal/proximity"
	"github.com/openvenue/bartab/internal/registry"
	"github.com/openvenue/bartab/internal/session"
	"github.com/openvenue/bartab/internal/store"
	"github.com/openvenue/bartab/internal/trigger"
)

// lastSeenWriteTimeout bounds the background write-behind of beacon
// lastSeen; the hot path never waits on it.
const lastSeenWriteTimeout = 5 * time.Second

// Pipeline processes detection events from any source (broker consumer,
// HTTP ingest, simulator).
type Pipeline struct {
	reg        *registry.Registry
	classifier *proximity.Classifier
	resolver   *trigger.Resolver
	machine    *session.Machine
	beacons    store.BeaconStore
	bus        broadcast.Broadcaster
}

// NewPipeline builds the pipeline.
func NewPipeline(reg *registry.Registry, cls *proximity.Classifier, res *trigger.Resolver, mach *session.Machine, beacons store.BeaconStore, bus broadcast.Broadcaster) *Pipeline {
	return &Pipeline{
		reg:        reg,
		classifier: cls,
		resolver:   res,
		machine:    mach,
		beacons:    beacons,
		bus:        bus,
	}
}

// HandleDetection applies one detection event.  Expected noise — unknown
// beacons, stale or duplicate events, lock timeouts — is logged and dropped;
// an error return means something downstream (store, broadcast transport)
// actually failed.
func (p *Pipeline) HandleDetection(ctx context.Context, ev model.DetectionEvent) error {
	if ev.BeaconID == 0 {
		if ev.Ref == nil {
			log.Printf("pipeline: detection without beacon identity for session %d, dropped", ev.SessionID)
			return nil
		}
		b, ok := p.reg.BeaconByRef(*ev.Ref)
		if !ok {
			log.Printf("pipeline: unknown beacon ref %s/%d/%d, dropped", ev.Ref.UUID, ev.Ref.Major, ev.Ref.Minor)
			return nil
		}
		ev.BeaconID = b.ID
	}

	tr, err := p.classifier.Observe(ev)
	switch {
	case errors.Is(err, proximity.ErrUnknownBeacon):
		log.Printf("pipeline: unknown beacon %d, dropped", ev.BeaconID)
		return nil
	case errors.Is(err, proximity.ErrStaleEvent):
		log.Printf("pipeline: stale detection for beacon %d (observed %s), dropped", ev.BeaconID, ev.ObservedAt.Format(time.RFC3339))
		return nil
	case err != nil:
		return err
	}

	p.persistLastSeen(ev.BeaconID, ev.ObservedAt)

	if tr == nil {
		return nil
	}
	return p.applyTransition(ctx, *tr)
}

// RunSweeper periodically turns beacon silence into FAR transitions until
// the context is cancelled.  This is the path that closes a tab when the
// patron simply walks out of range without an explicit exit detection.
func (p *Pipeline) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			for _, tr := range p.classifier.Sweep(now.UTC()) {
				if err := p.applyTransition(ctx, tr); err != nil {
					log.Printf("pipeline: sweep transition for beacon %d: %v", tr.BeaconID, err)
				}
			}
		}
	}
}

// applyTransition resolves a transition into a decision, drives the state
// machine, and then publishes the movement event.  The movement publish
// happens after the state machine has durably applied the decision.
func (p *Pipeline) applyTransition(ctx context.Context, tr proximity.Transition) error {
	d := p.resolver.Resolve(tr.SessionID, tr.BeaconID, tr.State)
	if !d.None() {
		if err := p.machine.ApplyTrigger(ctx, d, tr.At); err != nil {
			if errors.Is(err, locks.ErrTimeout) {
				log.Printf("pipeline: session %d lock timeout, detection dropped", tr.SessionID)
				return nil
			}
			return err
		}
	}
	p.publishMovement(ctx, tr, d)
	return nil
}

// publishMovement emits patron-movement to the session topic, then the
// venue staff topic.
func (p *Pipeline) publishMovement(ctx context.Context, tr proximity.Transition, d trigger.Decision) {
	b, ok := p.reg.Beacon(tr.BeaconID)
	if !ok {
		return
	}
	zones := p.reg.ZonesFor(tr.BeaconID)
	payload := broadcast.PatronMovementPayload{
		SessionID: tr.SessionID,
		BeaconID:  tr.BeaconID,
		Action:    tr.State.String(),
		Zones:     make([]broadcast.MovementZone, 0, len(zones)),
	}
	for _, z := range zones {
		payload.Zones = append(payload.Zones, broadcast.MovementZone{ID: z.ID, Name: z.Name, Type: z.Type})
	}
	if !d.None() {
		payload.Triggers = []broadcast.MovementTrigger{{ZoneID: d.ZoneID, Action: d.Action, Type: d.ZoneType}}
	}
	if err := p.bus.Publish(ctx, broadcast.SessionTopic(tr.SessionID), broadcast.EventPatronMovement, payload); err != nil {
		log.Printf("pipeline: publish session topic: %v", err)
	}
	if err := p.bus.Publish(ctx, broadcast.StaffTopic(b.VenueID), broadcast.EventPatronMovement, payload); err != nil {
		log.Printf("pipeline: publish staff topic: %v", err)
	}
}

// persistLastSeen writes the beacon's lastSeen behind the hot path.  The
// registry already has the fresh value in memory.
func (p *Pipeline) persistLastSeen(beaconID uint64, at time.Time) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), lastSeenWriteTimeout)
		defer cancel()
		if err := p.beacons.TouchLastSeen(ctx, beaconID, at); err != nil {
			log.Printf("pipeline: persist lastSeen for beacon %d: %v", beaconID, err)
		}
	}()
}
