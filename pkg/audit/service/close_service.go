package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
	"github.com/djsadd/inventory-audit-service/pkg/auditerr"
)

// CloseSession runs the two-phase commit described for C5: it commits the
// closed_by/closed_at stamp and the transient `reconciling` status first,
// then runs the canonical rebuild, then commits the transition to
// awaiting_approval. A caller reading the session between the two commits
// observes `reconciling` — this is deliberate, not a bug, so that the
// rebuild's window is observable.
func (s *SessionService) CloseSession(ctx context.Context, sessionID, closedBy int64) (*model.Session, error) {
	sess, err := s.commitReconciling(ctx, sessionID, closedBy)
	if err != nil {
		return nil, err
	}

	if err := s.rebuildDiscrepancies(ctx, sess); err != nil {
		return nil, err
	}

	sess, err = s.commitAwaitingApproval(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	s.notifications.CreateInternal(ctx, notifyTargets(sess, closedBy), "task", "Audit session closed",
		fmt.Sprintf("Session #%d is closed and awaiting approval.", sess.ID),
		map[string]any{"session_id": sess.ID, "location_id": sess.LocationID, "status": string(sess.Status)},
		"audit_session_closed", fmt.Sprintf("audit:session:%d:closed", sess.ID))

	return sess, nil
}

func (s *SessionService) commitReconciling(ctx context.Context, sessionID, closedBy int64) (*model.Session, error) {
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
	if sess.Status != model.SessionInProgress {
		return nil, auditerr.Conflictf("session_not_in_progress", "session %d is not in_progress", sessionID)
	}

	now := time.Now().UTC()
	sess.Status = model.SessionReconciling
	sess.ClosedBy = &closedBy
	sess.ClosedAt = &now

	if err := s.sessions.Save(ctx, tx, sess); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reconciling: %w", err)
	}
	return sess, nil
}

func (s *SessionService) commitAwaitingApproval(ctx context.Context, sessionID int64) (*model.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sess, err := s.sessions.GetForUpdate(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.Status = model.SessionAwaitingApproval
	if err := s.sessions.Save(ctx, tx, sess); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit awaiting_approval: %w", err)
	}
	return sess, nil
}

// rebuildDiscrepancies is the canonical rebuild (C4, P2): it deletes every
// Discrepancy row for the session and recomputes the authoritative set from
// the Expected and Scan sets, independent of whatever the incremental
// classifier produced.
//
// For misplaced, a single item with scans in more than one room collapses
// to one row recording the last scan's location, per the documented
// tie-break (a later scan supersedes an earlier one rather than each
// producing its own row).
func (s *SessionService) rebuildDiscrepancies(ctx context.Context, sess *model.Session) error {
	expected, err := s.expected.ListForSession(ctx, sess.ID)
	if err != nil {
		return err
	}
	scans, err := s.scans.ListForSession(ctx, sess.ID)
	if err != nil {
		return err
	}

	expectedByItem := make(map[int64]*model.ExpectedItem, len(expected))
	for _, e := range expected {
		expectedByItem[e.ItemID] = e
	}

	scanCounts := map[int64]int{}
	lastScanByItem := map[int64]*model.Scan{}
	var unknownBarcodeScans []*model.Scan
	for _, sc := range scans {
		if sc.ItemID == nil {
			if sc.BarcodeValue != nil && *sc.BarcodeValue != "" {
				unknownBarcodeScans = append(unknownBarcodeScans, sc)
			}
			continue
		}
		scanCounts[*sc.ItemID]++
		lastScanByItem[*sc.ItemID] = sc
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.discrepancies.DeleteForSession(ctx, tx, sess.ID); err != nil {
		return err
	}

	var missingItems []int64
	for itemID := range expectedByItem {
		if scanCounts[itemID] == 0 {
			missingItems = append(missingItems, itemID)
		}
	}
	sort.Slice(missingItems, func(i, j int) bool { return missingItems[i] < missingItems[j] })
	for _, itemID := range missingItems {
		e := expectedByItem[itemID]
		if err := s.discrepancies.Insert(ctx, tx, &model.Discrepancy{
			SessionID: sess.ID, Type: model.DiscrepancyMissing, ItemID: &itemID,
			ExpectedLocationID: e.ExpectedLocationID, ResolutionStatus: model.ResolutionOpen,
		}); err != nil {
			return err
		}
	}

	var duplicateItems []int64
	for itemID, count := range scanCounts {
		if count > 1 {
			duplicateItems = append(duplicateItems, itemID)
		}
	}
	sort.Slice(duplicateItems, func(i, j int) bool { return duplicateItems[i] < duplicateItems[j] })
	for _, itemID := range duplicateItems {
		e := expectedByItem[itemID]
		var expectedLocationID *int64
		if e != nil {
			expectedLocationID = e.ExpectedLocationID
		}
		payload, _ := marshalCount(scanCounts[itemID])
		if err := s.discrepancies.Insert(ctx, tx, &model.Discrepancy{
			SessionID: sess.ID, Type: model.DiscrepancyDuplicate, ItemID: &itemID,
			ExpectedLocationID: expectedLocationID, FoundLocationID: &sess.LocationID,
			ResolutionStatus: model.ResolutionOpen, ResolutionPayload: payload,
		}); err != nil {
			return err
		}
	}

	var unexpectedItems []int64
	for itemID := range scanCounts {
		if _, ok := expectedByItem[itemID]; !ok {
			unexpectedItems = append(unexpectedItems, itemID)
		}
	}
	sort.Slice(unexpectedItems, func(i, j int) bool { return unexpectedItems[i] < unexpectedItems[j] })
	for _, itemID := range unexpectedItems {
		if err := s.discrepancies.Insert(ctx, tx, &model.Discrepancy{
			SessionID: sess.ID, Type: model.DiscrepancyUnexpected, ItemID: &itemID,
			FoundLocationID: &sess.LocationID, ResolutionStatus: model.ResolutionOpen,
		}); err != nil {
			return err
		}
	}

	var misplacedItems []int64
	for itemID := range lastScanByItem {
		misplacedItems = append(misplacedItems, itemID)
	}
	sort.Slice(misplacedItems, func(i, j int) bool { return misplacedItems[i] < misplacedItems[j] })
	for _, itemID := range misplacedItems {
		e, ok := expectedByItem[itemID]
		if !ok || e.ExpectedLocationID == nil {
			continue
		}
		last := lastScanByItem[itemID]
		if last.FoundLocationID == *e.ExpectedLocationID {
			continue
		}
		if err := s.discrepancies.Insert(ctx, tx, &model.Discrepancy{
			SessionID: sess.ID, Type: model.DiscrepancyMisplaced, ItemID: &itemID,
			ExpectedLocationID: e.ExpectedLocationID, FoundLocationID: &last.FoundLocationID,
			ResolutionStatus: model.ResolutionOpen,
		}); err != nil {
			return err
		}
	}

	for _, sc := range unknownBarcodeScans {
		if err := s.discrepancies.Insert(ctx, tx, &model.Discrepancy{
			SessionID: sess.ID, Type: model.DiscrepancyUnknownBarcode, BarcodeValue: sc.BarcodeValue,
			FoundLocationID: &sc.FoundLocationID, ResolutionStatus: model.ResolutionOpen,
		}); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func marshalCount(count int) ([]byte, error) {
	return []byte(fmt.Sprintf(`{"count":%d}`, count)), nil
}

func notifyTargets(sess *model.Session, extra int64) []int64 {
	targets := []int64{extra}
	if sess.StartedBy != nil {
		targets = append(targets, *sess.StartedBy)
	}
	return targets
}
