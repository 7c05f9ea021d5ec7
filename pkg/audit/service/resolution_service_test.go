package service

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
	"github.com/djsadd/inventory-audit-service/pkg/audit/store"
	"github.com/djsadd/inventory-audit-service/pkg/auditerr"
	"github.com/djsadd/inventory-audit-service/pkg/collaborators"
)

func newResolutionService(t *testing.T) (*ResolutionService, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	s := NewResolutionService(db, store.NewSessionStore(db), store.NewDiscrepancyStore(db), store.NewActionStore(db),
		collaborators.NewNotificationClient("http://unused.invalid", ""))
	return s, mock, db
}

func TestResolutionService_ResolveDiscrepancy_NotFound(t *testing.T) {
	s, mock, db := newResolutionService(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_discrepancies WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.ResolveDiscrepancy(context.Background(), 5, model.ResolutionResolved, nil)
	require.Error(t, err)
	ae, ok := auditerr.As(err)
	require.True(t, ok)
	assert.Equal(t, auditerr.NotFound, ae.Kind)
}

func TestResolutionService_ResolveDiscrepancy_Success(t *testing.T) {
	s, mock, db := newResolutionService(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_discrepancies WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "session_id", "type", "item_id", "barcode_value", "expected_location_id", "found_location_id",
			"resolution_status", "resolution_payload", "created_at", "updated_at",
		}).AddRow(int64(5), int64(1), model.DiscrepancyMissing, int64(9), nil, nil, nil, model.ResolutionOpen, []byte(`{}`), now, now))

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE audit_discrepancies SET resolution_status")).
		WithArgs(int64(5), model.ResolutionIgnored, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "session_id", "type", "item_id", "barcode_value", "expected_location_id", "found_location_id",
			"resolution_status", "resolution_payload", "created_at", "updated_at",
		}).AddRow(int64(5), int64(1), model.DiscrepancyMissing, int64(9), nil, nil, nil, model.ResolutionIgnored, []byte(`{}`), now, now))

	d, err := s.ResolveDiscrepancy(context.Background(), 5, model.ResolutionIgnored, []byte(`{"reason":"written off"}`))
	require.NoError(t, err)
	assert.Equal(t, model.ResolutionIgnored, d.ResolutionStatus)
}

func TestResolutionService_ApproveSession_RejectsWhenNotAwaitingApproval(t *testing.T) {
	s, mock, db := newResolutionService(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "plan_id", "location_id", "status", "started_by", "started_at", "closed_by", "closed_at",
			"approved_by", "approved_at", "applied_at", "expected_snapshot_version", "created_at", "updated_at",
		}).AddRow(int64(1), nil, int64(42), model.SessionInProgress, nil, nil, nil, nil, nil, nil, nil, nil, now, now))
	mock.ExpectRollback()

	_, err := s.ApproveSession(context.Background(), 1, 2)
	require.Error(t, err)
	ae, ok := auditerr.As(err)
	require.True(t, ok)
	assert.Equal(t, "session_not_awaiting_approval", ae.Code)
}

func TestResolutionService_ApproveSession_RejectsWhenDiscrepanciesOpen(t *testing.T) {
	s, mock, db := newResolutionService(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "plan_id", "location_id", "status", "started_by", "started_at", "closed_by", "closed_at",
			"approved_by", "approved_at", "applied_at", "expected_snapshot_version", "created_at", "updated_at",
		}).AddRow(int64(1), nil, int64(42), model.SessionAwaitingApproval, nil, nil, nil, nil, nil, nil, nil, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_discrepancies")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	_, err := s.ApproveSession(context.Background(), 1, 2)
	require.Error(t, err)
	ae, ok := auditerr.As(err)
	require.True(t, ok)
	assert.Equal(t, "discrepancies_not_resolved", ae.Code)
}

func TestResolutionService_BuildActionsFromResolutions_RequiresApproved(t *testing.T) {
	s, mock, db := newResolutionService(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, plan_id")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "plan_id", "location_id", "status", "started_by", "started_at", "closed_by", "closed_at",
			"approved_by", "approved_at", "applied_at", "expected_snapshot_version", "created_at", "updated_at",
		}).AddRow(int64(1), nil, int64(42), model.SessionInProgress, nil, nil, nil, nil, nil, nil, nil, nil, now, now))

	_, err := s.BuildActionsFromResolutions(context.Background(), 1)
	require.Error(t, err)
	ae, ok := auditerr.As(err)
	require.True(t, ok)
	assert.Equal(t, "session_not_approved", ae.Code)
}

func TestResolutionService_BuildActionsFromResolutions_SkipsNonMovePayloads(t *testing.T) {
	s, mock, db := newResolutionService(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, plan_id")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "plan_id", "location_id", "status", "started_by", "started_at", "closed_by", "closed_at",
			"approved_by", "approved_at", "applied_at", "expected_snapshot_version", "created_at", "updated_at",
		}).AddRow(int64(1), nil, int64(42), model.SessionApproved, nil, nil, nil, nil, nil, nil, nil, nil, now, now))

	itemID := int64(9)
	mock.ExpectQuery(regexp.QuoteMeta("resolution_status = 'resolved'")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "session_id", "type", "item_id", "barcode_value", "expected_location_id", "found_location_id",
			"resolution_status", "resolution_payload", "created_at", "updated_at",
		}).AddRow(int64(5), int64(1), model.DiscrepancyMissing, &itemID, nil, nil, nil, model.ResolutionResolved, []byte(`{"action":"ignore"}`), now, now))

	created, err := s.BuildActionsFromResolutions(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, created)
}
