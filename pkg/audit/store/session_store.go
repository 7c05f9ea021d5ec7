package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
)

// SessionStore persists audit_sessions.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Create(ctx context.Context, sess *model.Session) error {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO audit_sessions (plan_id, location_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		sess.PlanID, sess.LocationID, sess.Status)
	return row.Scan(&sess.ID, &sess.CreatedAt, &sess.UpdatedAt)
}

const sessionColumns = `id, plan_id, location_id, status, started_by, started_at, closed_by, closed_at,
	approved_by, approved_at, applied_at, expected_snapshot_version, created_at, updated_at`

func (s *SessionStore) Get(ctx context.Context, id int64) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM audit_sessions WHERE id = $1", id)
	return scanSession(row)
}

// GetForUpdate locks the session row for the duration of tx, used by every
// state-machine transition to serialise against concurrent transitions.
func (s *SessionStore) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Session, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM audit_sessions WHERE id = $1 FOR UPDATE", id)
	return scanSession(row)
}

func (s *SessionStore) List(ctx context.Context, locationID, planID *int64, status *model.SessionStatus, limit, offset int) ([]*model.Session, error) {
	query := "SELECT " + sessionColumns + " FROM audit_sessions WHERE TRUE"
	args := []any{}
	n := 0
	add := func(clause string, v any) {
		n++
		query += fmt.Sprintf(" AND %s = $%d", clause, n)
		args = append(args, v)
	}
	if locationID != nil {
		add("location_id", *locationID)
	}
	if planID != nil {
		add("plan_id", *planID)
	}
	if status != nil {
		add("status", *status)
	}
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT %d OFFSET %d", clampLimit(limit), clampOffset(offset))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit_sessions: %w", err)
	}
	defer rows.Close()

	var out []*model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Save persists every mutable column of sess, used by every state-transition
// commit within an explicit transaction.
func (s *SessionStore) Save(ctx context.Context, tx *sql.Tx, sess *model.Session) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE audit_sessions SET
			status = $2, started_by = $3, started_at = $4, closed_by = $5, closed_at = $6,
			approved_by = $7, approved_at = $8, applied_at = $9, expected_snapshot_version = $10,
			updated_at = NOW()
		WHERE id = $1`,
		sess.ID, sess.Status, sess.StartedBy, sess.StartedAt, sess.ClosedBy, sess.ClosedAt,
		sess.ApprovedBy, sess.ApprovedAt, sess.AppliedAt, sess.ExpectedSnapshotVersion)
	if err != nil {
		return fmt.Errorf("update audit_session: %w", err)
	}
	return nil
}

func scanSession(row rowScanner) (*model.Session, error) {
	var sess model.Session
	err := row.Scan(&sess.ID, &sess.PlanID, &sess.LocationID, &sess.Status, &sess.StartedBy, &sess.StartedAt,
		&sess.ClosedBy, &sess.ClosedAt, &sess.ApprovedBy, &sess.ApprovedAt, &sess.AppliedAt,
		&sess.ExpectedSnapshotVersion, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan audit_session: %w", err)
	}
	return &sess, nil
}
