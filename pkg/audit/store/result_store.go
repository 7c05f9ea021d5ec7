package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
)

// ResultStore persists audit_item_results.
type ResultStore struct {
	db *sql.DB
}

func NewResultStore(db *sql.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) DeleteForSession(ctx context.Context, tx *sql.Tx, sessionID int64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM audit_item_results WHERE session_id = $1", sessionID)
	if err != nil {
		return fmt.Errorf("delete audit_item_results: %w", err)
	}
	return nil
}

func (s *ResultStore) Insert(ctx context.Context, tx *sql.Tx, r *model.ItemResult) error {
	row := tx.QueryRowContext(ctx, `
		INSERT INTO audit_item_results (session_id, item_id, status, expected_location_id, found_location_id, first_found_at, last_scan_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		r.SessionID, r.ItemID, r.Status, r.ExpectedLocationID, r.FoundLocationID, r.FirstFoundAt, r.LastScanAt)
	return row.Scan(&r.ID)
}

// GetByItem locks the row for update within tx so a scan's read-modify-write
// against the result is not lost to a concurrent scan on the same item.
func (s *ResultStore) GetByItem(ctx context.Context, tx *sql.Tx, sessionID, itemID int64) (*model.ItemResult, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, session_id, item_id, status, expected_location_id, found_location_id, first_found_at, last_scan_at
		FROM audit_item_results WHERE session_id = $1 AND item_id = $2 FOR UPDATE`, sessionID, itemID)
	var r model.ItemResult
	err := row.Scan(&r.ID, &r.SessionID, &r.ItemID, &r.Status, &r.ExpectedLocationID, &r.FoundLocationID, &r.FirstFoundAt, &r.LastScanAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan audit_item_result: %w", err)
	}
	return &r, nil
}

func (s *ResultStore) Update(ctx context.Context, tx *sql.Tx, r *model.ItemResult) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE audit_item_results SET status = $2, found_location_id = $3, first_found_at = $4, last_scan_at = $5
		WHERE id = $1`, r.ID, r.Status, r.FoundLocationID, r.FirstFoundAt, r.LastScanAt)
	if err != nil {
		return fmt.Errorf("update audit_item_result: %w", err)
	}
	return nil
}

func (s *ResultStore) ListForSession(ctx context.Context, sessionID int64) ([]*model.ItemResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, item_id, status, expected_location_id, found_location_id, first_found_at, last_scan_at
		FROM audit_item_results WHERE session_id = $1 ORDER BY item_id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list audit_item_results: %w", err)
	}
	defer rows.Close()

	var out []*model.ItemResult
	for rows.Next() {
		var r model.ItemResult
		if err := rows.Scan(&r.ID, &r.SessionID, &r.ItemID, &r.Status, &r.ExpectedLocationID, &r.FoundLocationID, &r.FirstFoundAt, &r.LastScanAt); err != nil {
			return nil, fmt.Errorf("scan audit_item_result: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
