package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
)

// ExpectedStore persists audit_expected_items, the immutable snapshot taken
// at session start.
type ExpectedStore struct {
	db *sql.DB
}

func NewExpectedStore(db *sql.DB) *ExpectedStore {
	return &ExpectedStore{db: db}
}

// DeleteForSession drains any pre-existing snapshot rows before a fresh
// start_session seeds new ones.
func (s *ExpectedStore) DeleteForSession(ctx context.Context, tx *sql.Tx, sessionID int64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM audit_expected_items WHERE session_id = $1", sessionID)
	if err != nil {
		return fmt.Errorf("delete audit_expected_items: %w", err)
	}
	return nil
}

func (s *ExpectedStore) Insert(ctx context.Context, tx *sql.Tx, e *model.ExpectedItem) error {
	row := tx.QueryRowContext(ctx, `
		INSERT INTO audit_expected_items (session_id, item_id, expected_location_id, expected_responsible_id, barcode_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, captured_at`,
		e.SessionID, e.ItemID, e.ExpectedLocationID, e.ExpectedResponsibleID, e.BarcodeID)
	return row.Scan(&e.ID, &e.CapturedAt)
}

func (s *ExpectedStore) ListForSession(ctx context.Context, sessionID int64) ([]*model.ExpectedItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, item_id, expected_location_id, expected_responsible_id, barcode_id, captured_at
		FROM audit_expected_items WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list audit_expected_items: %w", err)
	}
	defer rows.Close()

	var out []*model.ExpectedItem
	for rows.Next() {
		var e model.ExpectedItem
		if err := rows.Scan(&e.ID, &e.SessionID, &e.ItemID, &e.ExpectedLocationID, &e.ExpectedResponsibleID, &e.BarcodeID, &e.CapturedAt); err != nil {
			return nil, fmt.Errorf("scan audit_expected_item: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *ExpectedStore) GetByItem(ctx context.Context, sessionID, itemID int64) (*model.ExpectedItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, item_id, expected_location_id, expected_responsible_id, barcode_id, captured_at
		FROM audit_expected_items WHERE session_id = $1 AND item_id = $2`, sessionID, itemID)
	var e model.ExpectedItem
	err := row.Scan(&e.ID, &e.SessionID, &e.ItemID, &e.ExpectedLocationID, &e.ExpectedResponsibleID, &e.BarcodeID, &e.CapturedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan audit_expected_item: %w", err)
	}
	return &e, nil
}
