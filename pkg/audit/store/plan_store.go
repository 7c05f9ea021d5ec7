// Package store holds the audit core's PostgreSQL repositories, one file
// per persisted entity, following the same thin *sql.DB-backed shape
// throughout.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
)

// PlanStore persists audit_plans.
type PlanStore struct {
	db *sql.DB
}

func NewPlanStore(db *sql.DB) *PlanStore {
	return &PlanStore{db: db}
}

func (s *PlanStore) Create(ctx context.Context, p *model.Plan) error {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO audit_plans (title, scope_type, scope_payload, start_date, end_date, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		p.Title, p.ScopeType, []byte(p.ScopePayload), p.StartDate, p.EndDate, p.Status, p.CreatedBy)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("insert audit_plan: %w", err)
	}
	return nil
}

func (s *PlanStore) Get(ctx context.Context, id int64) (*model.Plan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, scope_type, scope_payload, start_date, end_date, status, created_by, created_at, updated_at
		FROM audit_plans WHERE id = $1`, id)
	return scanPlan(row)
}

func (s *PlanStore) List(ctx context.Context, status *model.PlanStatus, limit, offset int) ([]*model.Plan, error) {
	query := `
		SELECT id, title, scope_type, scope_payload, start_date, end_date, status, created_by, created_at, updated_at
		FROM audit_plans`
	args := []any{}
	if status != nil {
		query += " WHERE status = $1"
		args = append(args, *status)
	}
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT %d OFFSET %d", clampLimit(limit), clampOffset(offset))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit_plans: %w", err)
	}
	defer rows.Close()

	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlanRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update applies a partial PATCH of title and status: a nil title or status
// leaves that column unchanged. startDate and endDate are accepted but not
// written; Update never changes a plan's dates.
func (s *PlanStore) Update(ctx context.Context, id int64, title *string, status *model.PlanStatus, startDate, endDate **sql.NullTime) (*model.Plan, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE audit_plans SET
			title = COALESCE($2, title),
			status = COALESCE($3, status),
			updated_at = NOW()
		WHERE id = $1
		RETURNING id, title, scope_type, scope_payload, start_date, end_date, status, created_by, created_at, updated_at`,
		id, title, status)
	return scanPlan(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*model.Plan, error) {
	var p model.Plan
	var scopePayload []byte
	err := row.Scan(&p.ID, &p.Title, &p.ScopeType, &scopePayload, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan audit_plan: %w", err)
	}
	p.ScopePayload = scopePayload
	return &p, nil
}

func scanPlanRows(rows *sql.Rows) (*model.Plan, error) {
	return scanPlan(rows)
}

func clampLimit(n int) int {
	if n <= 0 {
		return 100
	}
	if n > 500 {
		return 500
	}
	return n
}

func clampOffset(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
