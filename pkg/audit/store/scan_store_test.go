package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
)

func TestScanStore_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewScanStore(db)
	now := time.Now()
	barcode := "ABC123"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO audit_scans")).
		WithArgs(int64(1), int64(9), &barcode, sqlmock.AnyArg(), int64(42), sqlmock.AnyArg(), sqlmock.AnyArg(), "client-1", []byte("{}")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "scan_time"}).AddRow(int64(5), now))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	scan := &model.Scan{
		SessionID: 1, ScannerUserID: 9, BarcodeValue: &barcode, FoundLocationID: 42,
		ClientScanID: "client-1", Extra: []byte("{}"),
	}
	require.NoError(t, s.Insert(context.Background(), tx, scan))
	require.NoError(t, tx.Commit())
	assert.Equal(t, int64(5), scan.ID)
}

func TestScanStore_GetByClientScanID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewScanStore(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_scans WHERE session_id = $1 AND client_scan_id = $2")).
		WithArgs(int64(1), "client-1").
		WillReturnError(sql.ErrNoRows)

	scan, err := s.GetByClientScanID(context.Background(), 1, "client-1")
	require.NoError(t, err)
	assert.Nil(t, scan)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(sql.ErrNoRows))
}
