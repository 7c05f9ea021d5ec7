// Package httpapi wires the audit core's services onto a single
// http.ServeMux using Go 1.22's method+pattern routing, the same shape the
// rest of the platform's HTTP surfaces use.
package httpapi

import (
	"net/http"

	"github.com/djsadd/inventory-audit-service/pkg/collaborators"
)

// Deps bundles every collaborator the router needs to build its handlers.
type Deps struct {
	Plans         *PlanHandlers
	Sessions      *SessionHandlers
	SessionChild  *SessionChildHandlers
	Discrepancies *DiscrepancyHandlers
	Reports       *ReportHandlers
	Auth          *collaborators.AuthClient
}

// NewRouter builds the audit service's HTTP mux. Authentication wraps the
// entire mux since the HTTP surface has no anonymous route (spec's §6
// table names a role for every endpoint); per-endpoint role checks happen
// inside each handler since the required role varies by route.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /plans", d.Plans.List)
	mux.HandleFunc("POST /plans", d.Plans.Create)
	mux.HandleFunc("GET /plans/{id}", d.Plans.Get)
	mux.HandleFunc("PATCH /plans/{id}", d.Plans.Update)

	mux.HandleFunc("GET /sessions", d.Sessions.List)
	mux.HandleFunc("POST /sessions", d.Sessions.Create)
	mux.HandleFunc("GET /sessions/{id}", d.Sessions.Get)
	mux.HandleFunc("POST /sessions/{id}/start", d.Sessions.Start)
	mux.HandleFunc("POST /sessions/{id}/scans", d.Sessions.CreateScan)
	mux.HandleFunc("GET /sessions/{id}/expected", d.SessionChild.Expected)
	mux.HandleFunc("GET /sessions/{id}/results", d.SessionChild.Results)
	mux.HandleFunc("GET /sessions/{id}/discrepancies", d.SessionChild.Discrepancies)
	mux.HandleFunc("GET /sessions/{id}/actions", d.SessionChild.Actions)
	mux.HandleFunc("POST /sessions/{id}/close", d.Sessions.Close)
	mux.HandleFunc("POST /sessions/{id}/approve", d.Sessions.Approve)
	mux.HandleFunc("POST /sessions/{id}/build-actions", d.Sessions.BuildActions)
	mux.HandleFunc("POST /sessions/{id}/apply", d.Sessions.Apply)

	mux.HandleFunc("POST /discrepancies/{id}/resolve", d.Discrepancies.Resolve)

	mux.HandleFunc("GET /reports/plans/{id}", d.Reports.PlanReport)

	return Authenticate(d.Auth)(mux)
}
