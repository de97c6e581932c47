package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/openvenue/bartab/internal/model"
)

// BeaconRepo provides read and lastSeen operations over beacon
// configuration.  Beacon create/update belongs to the administrative
// surface and is out of scope here.
type BeaconRepo struct {
	db *sql.DB
}

// NewBeaconRepo returns a new BeaconRepo bound to the given database.
func NewBeaconRepo(db *sql.DB) *BeaconRepo { return &BeaconRepo{db: db} }

// ListActiveBeacons returns every active beacon across all venues; the
// registry indexes them in memory.
func (r *BeaconRepo) ListActiveBeacons(ctx context.Context) ([]model.Beacon, error) {
	const q = `SELECT id, venue_id, name, uuid, major, minor, threshold_dbm, active, last_seen, created_at
		FROM beacons WHERE active = 1`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var beacons []model.Beacon
	for rows.Next() {
		var (
			b        model.Beacon
			lastSeen sql.NullTime
		)
		if err := rows.Scan(&b.ID, &b.VenueID, &b.Name, &b.UUID, &b.Major, &b.Minor,
			&b.Threshold, &b.Active, &lastSeen, &b.CreatedAt); err != nil {
			return nil, err
		}
		if lastSeen.Valid {
			t := lastSeen.Time
			b.LastSeen = &t
		}
		beacons = append(beacons, b)
	}
	return beacons, rows.Err()
}

// TouchLastSeen records the most recent detection time for a beacon.  The
// write-behind from the pipeline may race; only forward movement is kept.
func (r *BeaconRepo) TouchLastSeen(ctx context.Context, beaconID uint64, at time.Time) error {
	const q = `UPDATE beacons SET last_seen = ?
		WHERE id = ? AND (last_seen IS NULL OR last_seen < ?)`
	_, err := r.db.ExecContext(ctx, q, at.UTC(), beaconID, at.UTC())
	return err
}
