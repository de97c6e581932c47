// Package repository implements the store interfaces over MySQL.  Each
// repository wraps a *sql.DB and maps one table; all timestamps are stored
// in UTC.  Sentinel errors come from the store package so callers do not
// depend on this package directly.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/openvenue/bartab/internal/model"
	"github.com/openvenue/bartab/internal/store"
)

// SessionRepo provides CRUD operations for patron sessions.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionColumns = `id, venue_id, patron_key, table_label, status, entry_time, exit_time,
	subtotal_cents, tip_cents, total_cents, payment_on_file, settlement_status, created_at, updated_at`

// CreateSession inserts a new session row and populates the generated ID
// and timestamps on the provided model.
func (r *SessionRepo) CreateSession(ctx context.Context, s *model.Session) error {
	const q = `INSERT INTO sessions (venue_id, patron_key, table_label, status, settlement_status)
		VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.VenueID, s.PatronKey, s.TableLabel, s.Status, s.SettlementStatus)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	// Query back the row to populate defaults and timestamps.
	got, err := r.SessionByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *got
	return nil
}

// SessionByID returns the session or store.ErrSessionNotFound.
func (r *SessionRepo) SessionByID(ctx context.Context, id uint64) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	return r.scanSession(r.db.QueryRowContext(ctx, q, id))
}

// SessionByPatronKey returns the session holding the given patron key.
func (r *SessionRepo) SessionByPatronKey(ctx context.Context, key string) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE patron_key = ?`
	return r.scanSession(r.db.QueryRowContext(ctx, q, key))
}

// UpdateSession writes all mutable fields of an existing session row.
func (r *SessionRepo) UpdateSession(ctx context.Context, s *model.Session) error {
	const q = `UPDATE sessions
		SET status = ?, entry_time = ?, exit_time = ?, subtotal_cents = ?, tip_cents = ?,
			total_cents = ?, payment_on_file = ?, settlement_status = ?, updated_at = UTC_TIMESTAMP()
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		s.Status, nullTime(s.EntryTime), nullTime(s.ExitTime),
		s.SubtotalCents, s.TipCents, s.TotalCents, s.PaymentOnFile, s.SettlementStatus, s.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// The row may exist with identical values; distinguish missing rows.
		if _, err := r.SessionByID(ctx, s.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *SessionRepo) scanSession(row *sql.Row) (*model.Session, error) {
	var (
		s                   model.Session
		entryTime, exitTime sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.VenueID, &s.PatronKey, &s.TableLabel, &s.Status, &entryTime, &exitTime,
		&s.SubtotalCents, &s.TipCents, &s.TotalCents, &s.PaymentOnFile, &s.SettlementStatus,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if entryTime.Valid {
		t := entryTime.Time
		s.EntryTime = &t
	}
	if exitTime.Valid {
		t := exitTime.Time
		s.ExitTime = &t
	}
	return &s, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
