package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/djsadd/inventory-audit-service/pkg/api"
	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
	"github.com/djsadd/inventory-audit-service/pkg/audit/service"
)

// DiscrepancyHandlers serves POST /discrepancies/{id}/resolve.
type DiscrepancyHandlers struct {
	resolutions     *service.ResolutionService
	roleSupervisor  string
	roleSystemAdmin string
}

func NewDiscrepancyHandlers(resolutions *service.ResolutionService, roleSupervisor, roleSystemAdmin string) *DiscrepancyHandlers {
	return &DiscrepancyHandlers{resolutions: resolutions, roleSupervisor: roleSupervisor, roleSystemAdmin: roleSystemAdmin}
}

type resolveDiscrepancyRequest struct {
	Status  model.ResolutionStatus `json:"status"`
	Payload json.RawMessage        `json:"payload"`
}

func (h *DiscrepancyHandlers) Resolve(w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, h.roleSystemAdmin, h.roleSupervisor) {
		return
	}
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	var req resolveDiscrepancyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, r, "malformed request body")
		return
	}
	d, err := h.resolutions.ResolveDiscrepancy(r.Context(), id, req.Status, req.Payload)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, d)
}
