package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
	"github.com/djsadd/inventory-audit-service/pkg/audit/service"
	"github.com/djsadd/inventory-audit-service/pkg/audit/store"
	"github.com/djsadd/inventory-audit-service/pkg/collaborators"
)

func newSessionHandlers(t *testing.T) (*SessionHandlers, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sessions := service.NewSessionService(db,
		store.NewSessionStore(db), store.NewExpectedStore(db), store.NewResultStore(db),
		store.NewScanStore(db), store.NewDiscrepancyStore(db),
		collaborators.NewInventoryClient("http://unused.invalid"),
		collaborators.NewNotificationClient("http://unused.invalid", ""))
	resolutions := service.NewResolutionService(db, store.NewSessionStore(db), store.NewDiscrepancyStore(db), store.NewActionStore(db),
		collaborators.NewNotificationClient("http://unused.invalid", ""))
	apply := service.NewApplyService(db, store.NewSessionStore(db), store.NewActionStore(db),
		collaborators.NewInventoryClient("http://unused.invalid"), collaborators.NewNotificationClient("http://unused.invalid", ""))
	location := collaborators.NewLocationClient("http://unused.invalid")
	inventory := collaborators.NewInventoryClient("http://unused.invalid")

	h := NewSessionHandlers(sessions, resolutions, apply, location, inventory, "auditor", "supervisor", "system_admin")
	return h, mock
}

func TestSessionHandlers_Create_ForbiddenWithoutRole(t *testing.T) {
	h, _ := newSessionHandlers(t)
	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBufferString(`{"location_id":1}`))
	req = withAuth(req, &collaborators.User{ID: 1, Roles: []string{"viewer"}})
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSessionHandlers_Get_Success(t *testing.T) {
	h, mock := newSessionHandlers(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, plan_id")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "plan_id", "location_id", "status", "started_by", "started_at", "closed_by", "closed_at",
			"approved_by", "approved_at", "applied_at", "expected_snapshot_version", "created_at", "updated_at",
		}).AddRow(int64(1), nil, int64(42), model.SessionInProgress, nil, nil, nil, nil, nil, nil, nil, nil, now, now))

	req := httptest.NewRequest(http.MethodGet, "/sessions/1", nil)
	req.SetPathValue("id", "1")
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"LocationID":42`)
}

func TestSessionHandlers_Start_ForbiddenWithoutRole(t *testing.T) {
	h, _ := newSessionHandlers(t)
	req := httptest.NewRequest(http.MethodPost, "/sessions/1/start", nil)
	req.SetPathValue("id", "1")
	req = withAuth(req, &collaborators.User{ID: 1, Roles: []string{"viewer"}})
	rec := httptest.NewRecorder()

	h.Start(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSessionHandlers_CreateScan_RequiresClientScanID(t *testing.T) {
	h, _ := newSessionHandlers(t)
	req := httptest.NewRequest(http.MethodPost, "/sessions/1/scans", bytes.NewBufferString(`{"found_location_id":1}`))
	req.SetPathValue("id", "1")
	req = withAuth(req, &collaborators.User{ID: 1, Roles: []string{"auditor"}})
	rec := httptest.NewRecorder()

	h.CreateScan(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHandlers_Close_ForbiddenWithoutRole(t *testing.T) {
	h, _ := newSessionHandlers(t)
	req := httptest.NewRequest(http.MethodPost, "/sessions/1/close", nil)
	req.SetPathValue("id", "1")
	req = withAuth(req, &collaborators.User{ID: 1, Roles: []string{"viewer"}})
	rec := httptest.NewRecorder()

	h.Close(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSessionHandlers_Approve_ForbiddenWithoutRole(t *testing.T) {
	h, _ := newSessionHandlers(t)
	req := httptest.NewRequest(http.MethodPost, "/sessions/1/approve", nil)
	req.SetPathValue("id", "1")
	req = withAuth(req, &collaborators.User{ID: 1, Roles: []string{"auditor"}})
	rec := httptest.NewRecorder()

	h.Approve(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSessionHandlers_BuildActions_ForbiddenWithoutRole(t *testing.T) {
	h, _ := newSessionHandlers(t)
	req := httptest.NewRequest(http.MethodPost, "/sessions/1/build-actions", nil)
	req.SetPathValue("id", "1")
	req = withAuth(req, &collaborators.User{ID: 1, Roles: []string{"auditor"}})
	rec := httptest.NewRecorder()

	h.BuildActions(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSessionHandlers_Apply_RequiresSystemAdmin(t *testing.T) {
	h, _ := newSessionHandlers(t)
	req := httptest.NewRequest(http.MethodPost, "/sessions/1/apply", nil)
	req.SetPathValue("id", "1")
	req = withAuth(req, &collaborators.User{ID: 1, Roles: []string{"supervisor"}})
	rec := httptest.NewRecorder()

	h.Apply(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
