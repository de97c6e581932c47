package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/openvenue/bartab/internal/model"
	"github.com/openvenue/bartab/internal/store"
)

// StaffRepo looks up staff accounts for terminal login.
type StaffRepo struct {
	db *sql.DB
}

// NewStaffRepo returns a new StaffRepo bound to the given database.
func NewStaffRepo(db *sql.DB) *StaffRepo { return &StaffRepo{db: db} }

// StaffByEmail returns the staff account or store.ErrStaffNotFound.
func (r *StaffRepo) StaffByEmail(ctx context.Context, email string) (*model.Staff, error) {
	const q = `SELECT id, venue_id, email, password_hash, role, created_at FROM staff WHERE email = ?`
	var s model.Staff
	err := r.db.QueryRowContext(ctx, q, email).Scan(
		&s.ID, &s.VenueID, &s.Email, &s.PasswordHash, &s.Role, &s.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrStaffNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
