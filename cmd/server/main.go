package main

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"

	"github.com/openvenue/bartab/internal/broadcast"
	"github.com/openvenue/bartab/internal/config"
	"github.com/openvenue/bartab/internal/database"
	"github.com/openvenue/bartab/internal/handler"
	"github.com/openvenue/bartab/internal/ledger"
	"github.com/openvenue/bartab/internal/locks"
	"github.com/openvenue/bartab/internal/model"
	"github.com/openvenue/bartab/internal/payments"
	"github.com/openvenue/bartab/internal/proximity"
	"github.com/openvenue/bartab/internal/queue"
	"github.com/openvenue/bartab/internal/registry"
	"github.com/openvenue/bartab/internal/repository"
	"github.com/openvenue/bartab/internal/router"
	"github.com/openvenue/bartab/internal/service"
	"github.com/openvenue/bartab/internal/session"
	"github.com/openvenue/bartab/internal/store"
	"github.com/openvenue/bartab/internal/trigger"
)

// stores groups the persistence interfaces so the MySQL and in-memory
// backends wire identically.
type stores struct {
	venues   store.VenueStore
	sessions store.SessionStore
	items    store.TabItemStore
	beacons  store.BeaconStore
	zones    store.ZoneStore
	staff    store.StaffStore
}

func main() {
	cfg := config.Load()
	ctx := context.Background()

	st := openStores(ctx, cfg)

	// Broadcast fan-out: Redis when available, in-process otherwise.
	var bus broadcast.Broadcaster
	if client := config.NewRedisClient(); client != nil {
		bus = broadcast.NewRedis(client)
		log.Printf("broadcast: using redis pub/sub")
	} else {
		bus = broadcast.NewMemory()
		log.Printf("broadcast: redis unavailable, using in-process broker")
	}

	reg := registry.New(st.beacons, st.zones, cfg.DefaultDwell)
	if err := reg.Load(ctx); err != nil {
		log.Fatalf("registry load: %v", err)
	}
	go reg.Reload(ctx, cfg.RegistryReload, func(err error) {
		log.Printf("registry reload: %v", err)
	})

	keyed := locks.NewKeyed()
	led := ledger.New(st.sessions, st.items, bus, keyed, cfg.LockTimeout)
	gateway := payments.NewQueueGateway(st.sessions)
	machine := session.NewMachine(st.sessions, led, gateway, bus, keyed, cfg.LockTimeout)

	classifier := proximity.NewClassifier(reg, cfg.StaleAfter)
	resolver := trigger.NewResolver(reg)
	pipeline := service.NewPipeline(reg, classifier, resolver, machine, st.beacons, bus)

	go pipeline.RunSweeper(ctx, cfg.SweepInterval)
	go queue.StartDetectionConsumer(ctx, pipeline)

	e := echo.New()
	router.RegisterRoutes(e, router.Deps{
		Auth:      handler.NewAuthHandler(st.staff, cfg.JWTSecret, cfg.AccessTTLMin),
		Session:   handler.NewSessionHandler(machine, st.sessions, st.venues, led),
		Tab:       handler.NewTabHandler(led),
		Detection: handler.NewDetectionHandler(pipeline),
		Stream:    handler.NewStreamHandler(bus, st.sessions),
		JWTSecret: cfg.JWTSecret,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// openStores connects to MySQL when configured and falls back to the
// in-memory store (with demo seed data) otherwise.
func openStores(ctx context.Context, cfg config.Config) stores {
	if cfg.UseMySQL() {
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("database open: %v", err)
		}
		if err := database.InitSchema(ctx, db); err != nil {
			log.Fatalf("database schema: %v", err)
		}
		return stores{
			venues:   repository.NewVenueRepo(db),
			sessions: repository.NewSessionRepo(db),
			items:    repository.NewTabItemRepo(db),
			beacons:  repository.NewBeaconRepo(db),
			zones:    repository.NewZoneRepo(db),
			staff:    repository.NewStaffRepo(db),
		}
	}

	log.Printf("no database configured, using in-memory store with demo venue")
	mem := store.NewMemory()
	seedDemo(mem)
	return stores{
		venues:   mem,
		sessions: mem,
		items:    mem,
		beacons:  mem,
		zones:    mem,
		staff:    mem,
	}
}

// seedDemo provisions one venue with entry, bar and exit beacons so the
// simulator and a staff terminal have something to talk to.
func seedDemo(mem *store.Memory) {
	venueID := mem.AddVenue(model.Venue{Name: "Demo Bar", Timezone: "UTC"})

	entry := mem.AddBeacon(model.Beacon{
		VenueID: venueID, Name: "front door",
		UUID: "f7826da6-4fa2-4e98-8024-bc5b71e0893e", Major: 1, Minor: 1, Active: true,
	})
	bar := mem.AddBeacon(model.Beacon{
		VenueID: venueID, Name: "bar counter",
		UUID: "f7826da6-4fa2-4e98-8024-bc5b71e0893e", Major: 1, Minor: 2, Active: true,
	})
	exit := mem.AddBeacon(model.Beacon{
		VenueID: venueID, Name: "exit hallway",
		UUID: "f7826da6-4fa2-4e98-8024-bc5b71e0893e", Major: 1, Minor: 3, Active: true,
	})

	mem.AddZone(model.Zone{
		VenueID: venueID, Name: "entrance", Type: model.ZoneEntry,
		TriggerAction: model.ActionActivateTab, DwellSeconds: 2, Priority: 10,
	}, entry)
	mem.AddZone(model.Zone{
		VenueID: venueID, Name: "bar", Type: model.ZoneBar,
		TriggerAction: model.ActionNotification, DwellSeconds: 5, Priority: 5,
	}, bar)
	mem.AddZone(model.Zone{
		VenueID: venueID, Name: "exit", Type: model.ZoneExit,
		TriggerAction: model.ActionCloseTab, DwellSeconds: 2, Priority: 10,
	}, exit)
}
