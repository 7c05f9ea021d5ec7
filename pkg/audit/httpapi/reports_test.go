package httpapi

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
	"github.com/djsadd/inventory-audit-service/pkg/audit/service"
	"github.com/djsadd/inventory-audit-service/pkg/collaborators"
)

func newReportHandlers(t *testing.T) (*ReportHandlers, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	svc := service.NewReportService(db)
	return NewReportHandlers(svc, "supervisor", "system_admin"), mock
}

func TestReportHandlers_PlanReport_ForbiddenWithoutRole(t *testing.T) {
	h, _ := newReportHandlers(t)
	req := httptest.NewRequest(http.MethodGet, "/reports/plans/1", nil)
	req.SetPathValue("id", "1")
	req = withAuth(req, &collaborators.User{ID: 1, Roles: []string{"auditor"}})
	rec := httptest.NewRecorder()

	h.PlanReport(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReportHandlers_PlanReport_NotFound(t *testing.T) {
	h, mock := newReportHandlers(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_sessions WHERE plan_id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "location_id", "status"}))

	req := httptest.NewRequest(http.MethodGet, "/reports/plans/1", nil)
	req.SetPathValue("id", "1")
	req = withAuth(req, &collaborators.User{ID: 1, Roles: []string{"supervisor"}})
	rec := httptest.NewRecorder()

	h.PlanReport(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportHandlers_PlanReport_Success(t *testing.T) {
	h, mock := newReportHandlers(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_sessions WHERE plan_id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "location_id", "status"}).
			AddRow(int64(10), int64(100), model.SessionClosed))
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_item_results")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "status", "count"}).
			AddRow(int64(10), model.ResultFoundInPlace, 2))
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_scans")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "count"}).AddRow(int64(10), 2))
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_discrepancies")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "type", "resolution_status", "count"}))

	req := httptest.NewRequest(http.MethodGet, "/reports/plans/1", nil)
	req.SetPathValue("id", "1")
	req = withAuth(req, &collaborators.User{ID: 1, Roles: []string{"system_admin"}})
	rec := httptest.NewRecorder()

	h.PlanReport(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"FoundInPlace":2`)
}
