package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
	"github.com/djsadd/inventory-audit-service/pkg/audit/store"
	"github.com/djsadd/inventory-audit-service/pkg/auditerr"
)

// PlanService is the supplemented plan-management surface: plans are the
// scheduling unit an auditor creates before any session exists under it.
type PlanService struct {
	plans *store.PlanStore
}

func NewPlanService(plans *store.PlanStore) *PlanService {
	return &PlanService{plans: plans}
}

type CreatePlanInput struct {
	Title        string
	ScopeType    model.ScopeType
	ScopePayload json.RawMessage
	StartDate    time.Time
	EndDate      *time.Time
	CreatedBy    int64
}

func (s *PlanService) Create(ctx context.Context, in CreatePlanInput) (*model.Plan, error) {
	if in.Title == "" {
		return nil, auditerr.Validationf("title_required", "title is required")
	}
	startDate := in.StartDate
	p := &model.Plan{
		Title: in.Title, ScopeType: in.ScopeType, ScopePayload: in.ScopePayload,
		StartDate: &startDate, EndDate: in.EndDate, Status: model.PlanDraft, CreatedBy: in.CreatedBy,
	}
	if err := s.plans.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PlanService) Get(ctx context.Context, id int64) (*model.Plan, error) {
	p, err := s.plans.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, auditerr.NotFoundf("plan_not_found", "plan %d not found", id)
	}
	return p, nil
}

func (s *PlanService) List(ctx context.Context, status *model.PlanStatus, limit, offset int) ([]*model.Plan, error) {
	return s.plans.List(ctx, status, limit, offset)
}

// planTransitions is the allowed audit_plan_status state machine: draft can
// move to scheduled or canceled, scheduled to active or canceled, active
// only to closed. closed and canceled are terminal.
var planTransitions = map[model.PlanStatus]map[model.PlanStatus]bool{
	model.PlanDraft:     {model.PlanScheduled: true, model.PlanCanceled: true},
	model.PlanScheduled: {model.PlanActive: true, model.PlanCanceled: true},
	model.PlanActive:    {model.PlanClosed: true},
}

type UpdatePlanInput struct {
	Title  *string
	Status *model.PlanStatus
}

// Update applies a partial PATCH, enforcing the plan status state machine
// when a status transition is requested.
func (s *PlanService) Update(ctx context.Context, id int64, in UpdatePlanInput) (*model.Plan, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Status != nil && *in.Status != existing.Status {
		allowed := planTransitions[existing.Status]
		if !allowed[*in.Status] {
			return nil, auditerr.Conflictf("invalid_plan_transition", "plan %d cannot move from %s to %s", id, existing.Status, *in.Status)
		}
	}
	var nilDate **sql.NullTime
	return s.plans.Update(ctx, id, in.Title, in.Status, nilDate, nilDate)
}
