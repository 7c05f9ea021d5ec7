package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
	"github.com/djsadd/inventory-audit-service/pkg/auditerr"
)

func TestSessionService_CloseSession_RejectsWhenNotInProgress(t *testing.T) {
	s, mock, db := newSessionService(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "plan_id", "location_id", "status", "started_by", "started_at", "closed_by", "closed_at",
			"approved_by", "approved_at", "applied_at", "expected_snapshot_version", "created_at", "updated_at",
		}).AddRow(int64(1), nil, int64(42), model.SessionDraft, nil, nil, nil, nil, nil, nil, nil, nil, now, now))
	mock.ExpectRollback()

	_, err := s.CloseSession(context.Background(), 1, 9)
	require.Error(t, err)
	ae, ok := auditerr.As(err)
	require.True(t, ok)
	assert.Equal(t, "session_not_in_progress", ae.Code)
}

func TestSessionService_CloseSession_RebuildsOneMissingItem(t *testing.T) {
	s, mock, db := newSessionService(t)
	defer db.Close()

	now := time.Now()

	// phase 1: commitReconciling
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "plan_id", "location_id", "status", "started_by", "started_at", "closed_by", "closed_at",
			"approved_by", "approved_at", "applied_at", "expected_snapshot_version", "created_at", "updated_at",
		}).AddRow(int64(1), nil, int64(42), model.SessionInProgress, nil, nil, nil, nil, nil, nil, nil, nil, now, now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE audit_sessions SET")).
		WithArgs(int64(1), model.SessionReconciling, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// rebuildDiscrepancies: load expected + scans
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_expected_items WHERE session_id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "session_id", "item_id", "expected_location_id", "expected_responsible_id", "barcode_id", "captured_at",
		}).AddRow(int64(1), int64(1), int64(77), int64(42), nil, nil, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_scans WHERE session_id = $1 ORDER BY scan_time")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "session_id", "scanner_user_id", "scan_time", "barcode_value", "item_id", "found_location_id",
			"notes", "photo_url", "client_scan_id", "extra",
		}))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM audit_discrepancies WHERE session_id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO audit_discrepancies")).
		WithArgs(int64(1), model.DiscrepancyMissing, int64(77), sqlmock.AnyArg(), int64(42), sqlmock.AnyArg(), model.ResolutionOpen, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(1), now, now))
	mock.ExpectCommit()

	// phase 2: commitAwaitingApproval
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "plan_id", "location_id", "status", "started_by", "started_at", "closed_by", "closed_at",
			"approved_by", "approved_at", "applied_at", "expected_snapshot_version", "created_at", "updated_at",
		}).AddRow(int64(1), nil, int64(42), model.SessionReconciling, nil, nil, int64(9), now, nil, nil, nil, nil, now, now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE audit_sessions SET")).
		WithArgs(int64(1), model.SessionAwaitingApproval, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sess, err := s.CloseSession(context.Background(), 1, 9)
	require.NoError(t, err)
	assert.Equal(t, model.SessionAwaitingApproval, sess.Status)
}
