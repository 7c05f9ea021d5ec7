package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
)

// ScanStore persists audit_scans.
type ScanStore struct {
	db *sql.DB
}

func NewScanStore(db *sql.DB) *ScanStore {
	return &ScanStore{db: db}
}

// uniqueViolationCode is the duplicate-client-scan-id race the scan ingestor
// expects and recovers from by re-reading the winner's row.
const uniqueViolationCode = "23505"

func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if ok := asPQError(err, &pqErr); ok {
		return pqErr.Code == uniqueViolationCode
	}
	return false
}

func asPQError(err error, target **pq.Error) bool {
	pqErr, ok := err.(*pq.Error)
	if ok {
		*target = pqErr
	}
	return ok
}

// Insert writes scan within tx. On a (session_id, client_scan_id) conflict
// the caller should roll back and call GetByClientScanID instead.
func (s *ScanStore) Insert(ctx context.Context, tx *sql.Tx, scan *model.Scan) error {
	row := tx.QueryRowContext(ctx, `
		INSERT INTO audit_scans (session_id, scanner_user_id, barcode_value, item_id, found_location_id, notes, photo_url, client_scan_id, extra)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, scan_time`,
		scan.SessionID, scan.ScannerUserID, scan.BarcodeValue, scan.ItemID, scan.FoundLocationID,
		scan.Notes, scan.PhotoURL, scan.ClientScanID, []byte(scan.Extra))
	return row.Scan(&scan.ID, &scan.ScanTime)
}

func (s *ScanStore) GetByClientScanID(ctx context.Context, sessionID int64, clientScanID string) (*model.Scan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, scanner_user_id, scan_time, barcode_value, item_id, found_location_id, notes, photo_url, client_scan_id, extra
		FROM audit_scans WHERE session_id = $1 AND client_scan_id = $2`, sessionID, clientScanID)
	return scanScanRow(row)
}

func (s *ScanStore) ListForSession(ctx context.Context, sessionID int64) ([]*model.Scan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, scanner_user_id, scan_time, barcode_value, item_id, found_location_id, notes, photo_url, client_scan_id, extra
		FROM audit_scans WHERE session_id = $1 ORDER BY scan_time ASC, id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list audit_scans: %w", err)
	}
	defer rows.Close()

	var out []*model.Scan
	for rows.Next() {
		sc, err := scanScanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func scanScanRow(row rowScanner) (*model.Scan, error) {
	var sc model.Scan
	var extra []byte
	err := row.Scan(&sc.ID, &sc.SessionID, &sc.ScannerUserID, &sc.ScanTime, &sc.BarcodeValue, &sc.ItemID,
		&sc.FoundLocationID, &sc.Notes, &sc.PhotoURL, &sc.ClientScanID, &extra)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan audit_scan: %w", err)
	}
	sc.Extra = extra
	return &sc, nil
}
