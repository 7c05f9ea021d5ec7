package httpapi

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
	"github.com/djsadd/inventory-audit-service/pkg/audit/store"
)

func newSessionChildHandlers(t *testing.T) (*SessionChildHandlers, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	h := NewSessionChildHandlers(store.NewExpectedStore(db), store.NewResultStore(db), store.NewDiscrepancyStore(db), store.NewActionStore(db))
	return h, mock
}

func TestSessionChildHandlers_Expected(t *testing.T) {
	h, mock := newSessionChildHandlers(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_expected_items WHERE session_id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "session_id", "item_id", "expected_location_id", "expected_responsible_id", "barcode_id", "captured_at",
		}).AddRow(int64(1), int64(1), int64(77), int64(42), nil, nil, now))

	req := httptest.NewRequest(http.MethodGet, "/sessions/1/expected", nil)
	req.SetPathValue("id", "1")
	rec := httptest.NewRecorder()

	h.Expected(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ItemID":77`)
}

func TestSessionChildHandlers_Expected_BadID(t *testing.T) {
	h, _ := newSessionChildHandlers(t)
	req := httptest.NewRequest(http.MethodGet, "/sessions/x/expected", nil)
	req.SetPathValue("id", "x")
	rec := httptest.NewRecorder()

	h.Expected(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionChildHandlers_Results_Empty(t *testing.T) {
	h, mock := newSessionChildHandlers(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_item_results WHERE session_id = $1")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "session_id", "item_id", "status", "expected_location_id", "found_location_id", "first_found_at", "last_scan_at",
		}))

	req := httptest.NewRequest(http.MethodGet, "/sessions/9/results", nil)
	req.SetPathValue("id", "9")
	rec := httptest.NewRecorder()

	h.Results(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null\n", rec.Body.String())
}

func TestSessionChildHandlers_Discrepancies(t *testing.T) {
	h, mock := newSessionChildHandlers(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_discrepancies WHERE session_id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "session_id", "type", "item_id", "barcode_value", "expected_location_id", "found_location_id",
			"resolution_status", "resolution_payload", "created_at", "updated_at",
		}))

	req := httptest.NewRequest(http.MethodGet, "/sessions/3/discrepancies", nil)
	req.SetPathValue("id", "3")
	rec := httptest.NewRecorder()

	h.Discrepancies(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionChildHandlers_Discrepancies_FiltersByQueryParams(t *testing.T) {
	h, mock := newSessionChildHandlers(t)
	mock.ExpectQuery(regexp.QuoteMeta("AND type = $2 AND resolution_status = $3")).
		WithArgs(int64(3), model.DiscrepancyMisplaced, model.ResolutionOpen).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "session_id", "type", "item_id", "barcode_value", "expected_location_id", "found_location_id",
			"resolution_status", "resolution_payload", "created_at", "updated_at",
		}))

	req := httptest.NewRequest(http.MethodGet, "/sessions/3/discrepancies?type=misplaced&resolution_status=open", nil)
	req.SetPathValue("id", "3")
	rec := httptest.NewRecorder()

	h.Discrepancies(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionChildHandlers_Actions(t *testing.T) {
	h, mock := newSessionChildHandlers(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_actions WHERE session_id = $1")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "session_id", "action_type", "payload", "status", "idempotency_key", "last_error", "created_at", "updated_at",
		}))

	req := httptest.NewRequest(http.MethodGet, "/sessions/4/actions", nil)
	req.SetPathValue("id", "4")
	rec := httptest.NewRecorder()

	h.Actions(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
