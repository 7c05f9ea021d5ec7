package httpapi

import (
	"net/http"

	"github.com/djsadd/inventory-audit-service/pkg/api"
	"github.com/djsadd/inventory-audit-service/pkg/audit/service"
)

// ReportHandlers serves GET /reports/plans/{id}.
type ReportHandlers struct {
	reports         *service.ReportService
	roleSupervisor  string
	roleSystemAdmin string
}

func NewReportHandlers(reports *service.ReportService, roleSupervisor, roleSystemAdmin string) *ReportHandlers {
	return &ReportHandlers{reports: reports, roleSupervisor: roleSupervisor, roleSystemAdmin: roleSystemAdmin}
}

func (h *ReportHandlers) PlanReport(w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, h.roleSystemAdmin, h.roleSupervisor) {
		return
	}
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	report, err := h.reports.GetPlanReport(r.Context(), id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, report)
}
