package repository

import (
	"context"
	"database/sql"

	"github.com/openvenue/bartab/internal/model"
	"github.com/openvenue/bartab/internal/store"
)

// TabItemRepo provides CRUD operations for tab line items.  total_price_cents
// is always written from the model value the ledger derived; the column is
// never accepted from request payloads.
type TabItemRepo struct {
	db *sql.DB
}

// NewTabItemRepo returns a new TabItemRepo bound to the given database.
func NewTabItemRepo(db *sql.DB) *TabItemRepo { return &TabItemRepo{db: db} }

// InsertItem inserts a line item and populates the generated ID.
func (r *TabItemRepo) InsertItem(ctx context.Context, it *model.TabItem) error {
	const q = `INSERT INTO tab_items (session_id, name, price_cents, quantity, total_price_cents, added_by)
		VALUES (?, ?, ?, ?, ?, ?)`
	var addedBy sql.NullInt64
	if it.AddedBy != nil {
		addedBy = sql.NullInt64{Int64: int64(*it.AddedBy), Valid: true}
	}
	res, err := r.db.ExecContext(ctx, q, it.SessionID, it.Name, it.PriceCents, it.Quantity, it.TotalPriceCents, addedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = uint64(id)
	return nil
}

// DeleteItem removes an item if it belongs to the session; it returns
// store.ErrItemNotFound otherwise.  Corrections are a delete followed by a
// fresh insert, never an update.
func (r *TabItemRepo) DeleteItem(ctx context.Context, sessionID, itemID uint64) error {
	const q = `DELETE FROM tab_items WHERE id = ? AND session_id = ?`
	res, err := r.db.ExecContext(ctx, q, itemID, sessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrItemNotFound
	}
	return nil
}

// ItemsBySession returns the session's items ordered by insertion.
func (r *TabItemRepo) ItemsBySession(ctx context.Context, sessionID uint64) ([]model.TabItem, error) {
	const q = `SELECT id, session_id, name, price_cents, quantity, total_price_cents, added_by, created_at
		FROM tab_items WHERE session_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.TabItem
	for rows.Next() {
		var (
			it      model.TabItem
			addedBy sql.NullInt64
		)
		if err := rows.Scan(&it.ID, &it.SessionID, &it.Name, &it.PriceCents, &it.Quantity,
			&it.TotalPriceCents, &addedBy, &it.CreatedAt); err != nil {
			return nil, err
		}
		if addedBy.Valid {
			id := uint64(addedBy.Int64)
			it.AddedBy = &id
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
