package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
)

// ActionStore persists audit_actions.
type ActionStore struct {
	db *sql.DB
}

func NewActionStore(db *sql.DB) *ActionStore {
	return &ActionStore{db: db}
}

// Insert writes a with a UNIQUE(idempotency_key) constraint. The caller
// (C6's build-actions) treats a unique-violation as "already built" and
// swallows it so the operation stays idempotent.
func (s *ActionStore) Insert(ctx context.Context, a *model.Action) error {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO audit_actions (session_id, action_type, payload, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		a.SessionID, a.ActionType, []byte(a.Payload), a.Status, a.IdempotencyKey)
	return row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (s *ActionStore) ListPendingForSession(ctx context.Context, sessionID int64) ([]*model.Action, error) {
	return s.listForSession(ctx, sessionID, "pending")
}

func (s *ActionStore) ListForSession(ctx context.Context, sessionID int64) ([]*model.Action, error) {
	return s.listForSession(ctx, sessionID, "")
}

func (s *ActionStore) listForSession(ctx context.Context, sessionID int64, status string) ([]*model.Action, error) {
	query := `
		SELECT id, session_id, action_type, payload, status, idempotency_key, last_error, created_at, updated_at
		FROM audit_actions WHERE session_id = $1`
	args := []any{sessionID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit_actions: %w", err)
	}
	defer rows.Close()

	var out []*model.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkStatus updates one action's terminal status and error detail.
func (s *ActionStore) MarkStatus(ctx context.Context, id int64, status model.ActionStatus, lastError *string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE audit_actions SET status = $2, last_error = $3, updated_at = NOW() WHERE id = $1`, id, status, lastError)
	if err != nil {
		return fmt.Errorf("update audit_action: %w", err)
	}
	return nil
}

func (s *ActionStore) CountNotDone(ctx context.Context, sessionID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM audit_actions WHERE session_id = $1 AND status <> 'done'`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending audit_actions: %w", err)
	}
	return n, nil
}

func scanAction(row rowScanner) (*model.Action, error) {
	var a model.Action
	var payload []byte
	err := row.Scan(&a.ID, &a.SessionID, &a.ActionType, &payload, &a.Status, &a.IdempotencyKey, &a.LastError, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan audit_action: %w", err)
	}
	a.Payload = payload
	return &a, nil
}
