package repository

import (
	"context"
	"database/sql"

	"github.com/openvenue/bartab/internal/model"
)

// ZoneRepo reads zone configuration and the zone↔beacon join table.  The
// join is flattened into the registry's adjacency index at load time; no
// query here runs on the per-detection path.
type ZoneRepo struct {
	db *sql.DB
}

// NewZoneRepo returns a new ZoneRepo bound to the given database.
func NewZoneRepo(db *sql.DB) *ZoneRepo { return &ZoneRepo{db: db} }

// ListZones returns every zone across all venues.
func (r *ZoneRepo) ListZones(ctx context.Context) ([]model.Zone, error) {
	const q = `SELECT id, venue_id, name, type, trigger_action, dwell_seconds, priority, created_at
		FROM zones`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []model.Zone
	for rows.Next() {
		var z model.Zone
		if err := rows.Scan(&z.ID, &z.VenueID, &z.Name, &z.Type, &z.TriggerAction,
			&z.DwellSeconds, &z.Priority, &z.CreatedAt); err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// ListZoneBeacons returns every zone↔beacon link.
func (r *ZoneRepo) ListZoneBeacons(ctx context.Context) ([]model.ZoneBeacon, error) {
	const q = `SELECT zone_id, beacon_id FROM zone_beacons`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []model.ZoneBeacon
	for rows.Next() {
		var l model.ZoneBeacon
		if err := rows.Scan(&l.ZoneID, &l.BeaconID); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}
