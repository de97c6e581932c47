package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/openvenue/bartab/internal/model"
	"github.com/openvenue/bartab/internal/store"
)

// VenueRepo reads venue rows.  Venue provisioning happens on the
// administrative surface; the engine only needs lookups.
type VenueRepo struct {
	db *sql.DB
}

// NewVenueRepo returns a new VenueRepo bound to the given database.
func NewVenueRepo(db *sql.DB) *VenueRepo { return &VenueRepo{db: db} }

// VenueByID returns the venue or store.ErrVenueNotFound.
func (r *VenueRepo) VenueByID(ctx context.Context, id uint64) (*model.Venue, error) {
	const q = `SELECT id, name, timezone, created_at FROM venues WHERE id = ?`
	var v model.Venue
	err := r.db.QueryRowContext(ctx, q, id).Scan(&v.ID, &v.Name, &v.Timezone, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrVenueNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
