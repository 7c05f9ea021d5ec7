// Package service implements the audit core's business logic: the session
// state machine, the scan ingestor and discrepancy classifier, resolution
// and action building, action application, and plan reporting.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
	"github.com/djsadd/inventory-audit-service/pkg/audit/store"
	"github.com/djsadd/inventory-audit-service/pkg/auditerr"
	"github.com/djsadd/inventory-audit-service/pkg/collaborators"
)

// SessionService drives a Session through its lifecycle: start (C2),
// scan ingestion and classification (C3/C4), and close (C4 canonical
// rebuild + C5 transition).
type SessionService struct {
	db *sql.DB

	sessions     *store.SessionStore
	expected     *store.ExpectedStore
	results      *store.ResultStore
	scans        *store.ScanStore
	discrepancies *store.DiscrepancyStore

	inventory    *collaborators.InventoryClient
	notifications *collaborators.NotificationClient
}

func NewSessionService(
	db *sql.DB,
	sessions *store.SessionStore,
	expected *store.ExpectedStore,
	results *store.ResultStore,
	scans *store.ScanStore,
	discrepancies *store.DiscrepancyStore,
	inventory *collaborators.InventoryClient,
	notifications *collaborators.NotificationClient,
) *SessionService {
	return &SessionService{
		db: db, sessions: sessions, expected: expected, results: results, scans: scans,
		discrepancies: discrepancies, inventory: inventory, notifications: notifications,
	}
}

func (s *SessionService) Get(ctx context.Context, id int64) (*model.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, auditerr.NotFoundf("session_not_found", "session %d not found", id)
	}
	return sess, nil
}

func (s *SessionService) List(ctx context.Context, locationID, planID *int64, status *model.SessionStatus, limit, offset int) ([]*model.Session, error) {
	return s.sessions.List(ctx, locationID, planID, status, limit, offset)
}

func (s *SessionService) Create(ctx context.Context, planID *int64, locationID int64) (*model.Session, error) {
	sess := &model.Session{PlanID: planID, LocationID: locationID, Status: model.SessionDraft}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// StartSession fetches the room's current item set from the inventory
// collaborator, seeds the immutable expected-item/item-result snapshot,
// and transitions the session draft -> in_progress, all within one
// transaction. Notification is best-effort and runs after commit.
func (s *SessionService) StartSession(ctx context.Context, sessionID, startedBy int64, token string) (*model.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sess, err := s.sessions.GetForUpdate(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, auditerr.NotFoundf("session_not_found", "session %d not found", sessionID)
	}
	if sess.Status != model.SessionDraft {
		return nil, auditerr.Conflictf("session_not_draft", "session %d is not in draft", sessionID)
	}

	items, err := s.inventory.ListByRoom(ctx, token, sess.LocationID)
	if err != nil {
		return nil, err
	}

	if err := s.expected.DeleteForSession(ctx, tx, sessionID); err != nil {
		return nil, err
	}
	if err := s.results.DeleteForSession(ctx, tx, sessionID); err != nil {
		return nil, err
	}

	for _, item := range items {
		expected := &model.ExpectedItem{
			SessionID:             sessionID,
			ItemID:                item.ID,
			ExpectedLocationID:    item.LocationID,
			ExpectedResponsibleID: item.ResponsibleID,
			BarcodeID:             item.BarcodeID,
		}
		if err := s.expected.Insert(ctx, tx, expected); err != nil {
			return nil, err
		}
		result := &model.ItemResult{
			SessionID:          sessionID,
			ItemID:             item.ID,
			Status:             model.ResultMissing,
			ExpectedLocationID: item.LocationID,
		}
		if err := s.results.Insert(ctx, tx, result); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	version := uuid.NewString()
	sess.Status = model.SessionInProgress
	sess.StartedBy = &startedBy
	sess.StartedAt = &now
	sess.ExpectedSnapshotVersion = &version

	if err := s.sessions.Save(ctx, tx, sess); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit start_session: %w", err)
	}

	s.notifications.CreateInternal(ctx, []int64{startedBy}, "task", "Audit session started",
		fmt.Sprintf("Session #%d moved to in_progress.", sess.ID),
		map[string]any{"session_id": sess.ID, "location_id": sess.LocationID, "status": string(sess.Status)},
		"audit_session_started", fmt.Sprintf("audit:session:%d:started", sess.ID))

	return sess, nil
}

// CreateScanInput is the caller-supplied payload for a scan.
type CreateScanInput struct {
	FoundLocationID int64
	ItemID          *int64
	BarcodeValue    *string
	Notes           *string
	PhotoURL        *string
	ClientScanID    string
	Extra           json.RawMessage
}

// CreateScan accepts one scan, resolving item_id from barcode_value when
// needed, then applies the incremental classifier. Retried scans (same
// client_scan_id) are detected via the UNIQUE(session_id, client_scan_id)
// constraint and re-processed against the existing row so P1 holds even if
// the first attempt's post-processing never completed.
func (s *SessionService) CreateScan(ctx context.Context, sessionID int64, in CreateScanInput, scannerUserID int64, resolvedItemID *int64) (*model.Scan, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.SessionInProgress {
		return nil, auditerr.Conflictf("session_not_in_progress", "session %d is not in_progress", sessionID)
	}
	if in.FoundLocationID != sess.LocationID {
		return nil, auditerr.Validationf("found_location_must_match_session_location", "found_location_id must equal the session's location")
	}
	if in.ItemID == nil && (in.BarcodeValue == nil || *in.BarcodeValue == "") {
		return nil, auditerr.Validationf("item_or_barcode_required", "one of item_id or barcode_value is required")
	}

	itemID := in.ItemID
	if itemID == nil {
		itemID = resolvedItemID
	}

	scan := &model.Scan{
		SessionID: sessionID, ScannerUserID: scannerUserID, BarcodeValue: in.BarcodeValue, ItemID: itemID,
		FoundLocationID: in.FoundLocationID, Notes: in.Notes, PhotoURL: in.PhotoURL,
		ClientScanID: in.ClientScanID, Extra: in.Extra,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.scans.Insert(ctx, tx, scan); err != nil {
		if store.IsUniqueViolation(err) {
			_ = tx.Rollback()
			existing, getErr := s.scans.GetByClientScanID(ctx, sessionID, in.ClientScanID)
			if getErr != nil {
				return nil, getErr
			}
			if existing == nil {
				return nil, auditerr.Conflictf("scan_already_exists", "scan with client_scan_id %q vanished after conflict", in.ClientScanID)
			}
			return s.reapplyClassifier(ctx, sess, existing)
		}
		return nil, fmt.Errorf("insert scan: %w", err)
	}

	now := time.Now().UTC()
	if err := s.updateItemResultFromScan(ctx, tx, sess, scan, now); err != nil {
		return nil, err
	}
	if err := s.updateDiscrepanciesFromScan(ctx, tx, sess, scan); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create_scan: %w", err)
	}
	return scan, nil
}

// reapplyClassifier re-runs the incremental classifier against an
// already-persisted scan, in its own transaction, for the idempotent-retry
// path.
func (s *SessionService) reapplyClassifier(ctx context.Context, sess *model.Session, scan *model.Scan) (*model.Scan, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if err := s.updateItemResultFromScan(ctx, tx, sess, scan, now); err != nil {
		return nil, err
	}
	if err := s.updateDiscrepanciesFromScan(ctx, tx, sess, scan); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reapply classifier: %w", err)
	}
	return scan, nil
}

func (s *SessionService) updateItemResultFromScan(ctx context.Context, tx *sql.Tx, sess *model.Session, scan *model.Scan, now time.Time) error {
	if scan.ItemID == nil {
		return nil
	}

	result, err := s.results.GetByItem(ctx, tx, sess.ID, *scan.ItemID)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	if result.FirstFoundAt == nil {
		result.FirstFoundAt = &now
	}
	result.LastScanAt = &now
	result.FoundLocationID = &scan.FoundLocationID

	if result.ExpectedLocationID != nil && *result.ExpectedLocationID == scan.FoundLocationID {
		result.Status = model.ResultFoundInPlace
	} else {
		result.Status = model.ResultFound
	}
	return s.results.Update(ctx, tx, result)
}

func (s *SessionService) updateDiscrepanciesFromScan(ctx context.Context, tx *sql.Tx, sess *model.Session, scan *model.Scan) error {
	if scan.ItemID == nil {
		if scan.BarcodeValue != nil && *scan.BarcodeValue != "" {
			return s.upsertDiscrepancy(ctx, tx, sess.ID, model.DiscrepancyUnknownBarcode, nil, scan.BarcodeValue, nil, &scan.FoundLocationID)
		}
		return nil
	}

	expected, err := s.expected.GetByItem(ctx, sess.ID, *scan.ItemID)
	if err != nil {
		return err
	}
	if expected == nil {
		return s.upsertDiscrepancy(ctx, tx, sess.ID, model.DiscrepancyUnexpected, scan.ItemID, nil, nil, &scan.FoundLocationID)
	}

	if expected.ExpectedLocationID != nil && scan.FoundLocationID != *expected.ExpectedLocationID {
		return s.upsertDiscrepancy(ctx, tx, sess.ID, model.DiscrepancyMisplaced, scan.ItemID, nil, expected.ExpectedLocationID, &scan.FoundLocationID)
	}
	return nil
}

// upsertDiscrepancy updates the open discrepancy matching the classifier's
// key if one exists, inserting a fresh one otherwise, so incremental
// classification never accumulates duplicate open rows for the same item.
func (s *SessionService) upsertDiscrepancy(ctx context.Context, tx *sql.Tx, sessionID int64, dtype model.DiscrepancyType, itemID *int64, barcodeValue *string, expectedLocationID, foundLocationID *int64) error {
	existing, err := s.discrepancies.FindOpen(ctx, tx, sessionID, dtype, itemID, barcodeValue)
	if err != nil {
		return err
	}
	if existing != nil {
		return s.discrepancies.UpdateLocations(ctx, tx, existing.ID, expectedLocationID, foundLocationID)
	}
	return s.discrepancies.Insert(ctx, tx, &model.Discrepancy{
		SessionID: sessionID, Type: dtype, ItemID: itemID, BarcodeValue: barcodeValue,
		ExpectedLocationID: expectedLocationID, FoundLocationID: foundLocationID, ResolutionStatus: model.ResolutionOpen,
	})
}
