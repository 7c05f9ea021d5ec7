package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
)

// DiscrepancyStore persists audit_discrepancies.
type DiscrepancyStore struct {
	db *sql.DB
}

func NewDiscrepancyStore(db *sql.DB) *DiscrepancyStore {
	return &DiscrepancyStore{db: db}
}

func (s *DiscrepancyStore) DeleteForSession(ctx context.Context, tx *sql.Tx, sessionID int64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM audit_discrepancies WHERE session_id = $1", sessionID)
	if err != nil {
		return fmt.Errorf("delete audit_discrepancies: %w", err)
	}
	return nil
}

func (s *DiscrepancyStore) Insert(ctx context.Context, tx *sql.Tx, d *model.Discrepancy) error {
	row := tx.QueryRowContext(ctx, `
		INSERT INTO audit_discrepancies (session_id, type, item_id, barcode_value, expected_location_id, found_location_id, resolution_status, resolution_payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		d.SessionID, d.Type, d.ItemID, d.BarcodeValue, d.ExpectedLocationID, d.FoundLocationID, d.ResolutionStatus, nullableJSON(d.ResolutionPayload))
	return row.Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

// FindOpen locates the single open discrepancy matching the incremental
// classifier's upsert key: (session, type, item_id-or-null, barcode-or-null).
func (s *DiscrepancyStore) FindOpen(ctx context.Context, tx *sql.Tx, sessionID int64, dtype model.DiscrepancyType, itemID *int64, barcodeValue *string) (*model.Discrepancy, error) {
	query := `
		SELECT id, session_id, type, item_id, barcode_value, expected_location_id, found_location_id, resolution_status, resolution_payload, created_at, updated_at
		FROM audit_discrepancies
		WHERE session_id = $1 AND type = $2 AND resolution_status = 'open'`
	args := []any{sessionID, dtype}
	if itemID != nil {
		query += " AND item_id = $3"
		args = append(args, *itemID)
	} else {
		query += " AND item_id IS NULL"
	}
	if barcodeValue != nil {
		query += fmt.Sprintf(" AND barcode_value = $%d", len(args)+1)
		args = append(args, *barcodeValue)
	} else {
		query += " AND barcode_value IS NULL"
	}
	row := tx.QueryRowContext(ctx, query, args...)
	return scanDiscrepancy(row)
}

func (s *DiscrepancyStore) UpdateLocations(ctx context.Context, tx *sql.Tx, id int64, expectedLocationID, foundLocationID *int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE audit_discrepancies SET expected_location_id = $2, found_location_id = $3, updated_at = NOW() WHERE id = $1`,
		id, expectedLocationID, foundLocationID)
	if err != nil {
		return fmt.Errorf("update audit_discrepancy: %w", err)
	}
	return nil
}

func (s *DiscrepancyStore) Get(ctx context.Context, id int64) (*model.Discrepancy, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, type, item_id, barcode_value, expected_location_id, found_location_id, resolution_status, resolution_payload, created_at, updated_at
		FROM audit_discrepancies WHERE id = $1`, id)
	return scanDiscrepancy(row)
}

func (s *DiscrepancyStore) Resolve(ctx context.Context, id int64, status model.ResolutionStatus, payload []byte) (*model.Discrepancy, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE audit_discrepancies SET resolution_status = $2, resolution_payload = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING id, session_id, type, item_id, barcode_value, expected_location_id, found_location_id, resolution_status, resolution_payload, created_at, updated_at`,
		id, status, nullableJSON(payload))
	return scanDiscrepancy(row)
}

// ListForSession lists a session's discrepancies, optionally narrowed by
// type and/or resolution status.
func (s *DiscrepancyStore) ListForSession(ctx context.Context, sessionID int64, dtype *model.DiscrepancyType, resolutionStatus *model.ResolutionStatus) ([]*model.Discrepancy, error) {
	query := `
		SELECT id, session_id, type, item_id, barcode_value, expected_location_id, found_location_id, resolution_status, resolution_payload, created_at, updated_at
		FROM audit_discrepancies WHERE session_id = $1`
	args := []any{sessionID}
	if dtype != nil {
		args = append(args, *dtype)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if resolutionStatus != nil {
		args = append(args, *resolutionStatus)
		query += fmt.Sprintf(" AND resolution_status = $%d", len(args))
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit_discrepancies: %w", err)
	}
	defer rows.Close()

	var out []*model.Discrepancy
	for rows.Next() {
		d, err := scanDiscrepancy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *DiscrepancyStore) CountOpen(ctx context.Context, sessionID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM audit_discrepancies WHERE session_id = $1 AND resolution_status = 'open'`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open audit_discrepancies: %w", err)
	}
	return n, nil
}

func (s *DiscrepancyStore) ListResolvedMoves(ctx context.Context, sessionID int64) ([]*model.Discrepancy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, type, item_id, barcode_value, expected_location_id, found_location_id, resolution_status, resolution_payload, created_at, updated_at
		FROM audit_discrepancies WHERE session_id = $1 AND resolution_status = 'resolved' ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list resolved audit_discrepancies: %w", err)
	}
	defer rows.Close()

	var out []*model.Discrepancy
	for rows.Next() {
		d, err := scanDiscrepancy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDiscrepancy(row rowScanner) (*model.Discrepancy, error) {
	var d model.Discrepancy
	var payload []byte
	err := row.Scan(&d.ID, &d.SessionID, &d.Type, &d.ItemID, &d.BarcodeValue, &d.ExpectedLocationID, &d.FoundLocationID,
		&d.ResolutionStatus, &payload, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan audit_discrepancy: %w", err)
	}
	d.ResolutionPayload = payload
	return &d, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
