package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/djsadd/inventory-audit-service/pkg/api"
	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
	"github.com/djsadd/inventory-audit-service/pkg/audit/service"
)

// PlanHandlers serves /plans and /plans/{id}.
type PlanHandlers struct {
	plans           *service.PlanService
	roleAuditor     string
	roleSupervisor  string
	roleSystemAdmin string
}

func NewPlanHandlers(plans *service.PlanService, roleAuditor, roleSupervisor, roleSystemAdmin string) *PlanHandlers {
	return &PlanHandlers{plans: plans, roleAuditor: roleAuditor, roleSupervisor: roleSupervisor, roleSystemAdmin: roleSystemAdmin}
}

type createPlanRequest struct {
	Title        string          `json:"title"`
	ScopeType    model.ScopeType `json:"scope_type"`
	ScopePayload json.RawMessage `json:"scope_payload"`
	StartDate    time.Time       `json:"start_date"`
	EndDate      *time.Time      `json:"end_date"`
}

func (h *PlanHandlers) Create(w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, h.roleSystemAdmin, h.roleAuditor) {
		return
	}
	var req createPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, r, "malformed request body")
		return
	}
	user := userFromContext(r.Context())
	plan, err := h.plans.Create(r.Context(), service.CreatePlanInput{
		Title: req.Title, ScopeType: req.ScopeType, ScopePayload: req.ScopePayload,
		StartDate: req.StartDate, EndDate: req.EndDate, CreatedBy: user.ID,
	})
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, plan)
}

func (h *PlanHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	plan, err := h.plans.Get(r.Context(), id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, plan)
}

func (h *PlanHandlers) List(w http.ResponseWriter, r *http.Request) {
	var status *model.PlanStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := model.PlanStatus(raw)
		status = &s
	}
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)
	plans, err := h.plans.List(r.Context(), status, limit, offset)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, plans)
}

type updatePlanRequest struct {
	Title  *string           `json:"title"`
	Status *model.PlanStatus `json:"status"`
}

func (h *PlanHandlers) Update(w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, h.roleSystemAdmin, h.roleSupervisor) {
		return
	}
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	var req updatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, r, "malformed request body")
		return
	}
	plan, err := h.plans.Update(r.Context(), id, service.UpdatePlanInput{Title: req.Title, Status: req.Status})
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, plan)
}
