// Package api renders audit-core errors as RFC 7807 Problem Detail JSON
// responses and provides the HTTP middleware chain for the audit service.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/djsadd/inventory-audit-service/pkg/auditerr"
)

// ProblemDetail implements RFC 7807 (Problem Details for HTTP APIs).
// Every error response from the audit HTTP surface uses this format.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Code     string `json:"code,omitempty"`
	TraceID  string `json:"trace_id,omitempty"`
}

func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

var kindStatus = map[auditerr.Kind]struct {
	status int
	title  string
}{
	auditerr.NotFound:            {http.StatusNotFound, "Not Found"},
	auditerr.StateConflict:       {http.StatusConflict, "Conflict"},
	auditerr.Validation:          {http.StatusUnprocessableEntity, "Unprocessable Entity"},
	auditerr.Forbidden:           {http.StatusForbidden, "Forbidden"},
	auditerr.Unauthorised:        {http.StatusUnauthorized, "Unauthorized"},
	auditerr.UpstreamUnavailable: {http.StatusServiceUnavailable, "Upstream Unavailable"},
	auditerr.UpstreamError:       {http.StatusBadGateway, "Upstream Error"},
}

// WriteError renders err as the matching RFC 7807 response. Unrecognised
// error types (programming errors that escaped the service layer) are
// logged and reported as 500 without leaking detail to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := auditerr.As(err)
	if !ok {
		slog.Error("unhandled error reached the http boundary", "error", err, "path", r.URL.Path)
		writeProblem(w, r, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred", "")
		return
	}

	status, title := http.StatusInternalServerError, "Internal Server Error"
	if mapped, ok := kindStatus[ae.Kind]; ok {
		status, title = mapped.status, mapped.title
	}
	writeProblem(w, r, status, title, ae.Detail, ae.Code)
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, title, detail, code string) {
	problem := &ProblemDetail{
		Type:     fmt.Sprintf("https://inventory-audit.internal/errors/%d", status),
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
		Code:     code,
		TraceID:  w.Header().Get("X-Request-ID"),
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// WriteBadRequest writes a plain 400 for malformed request bodies, which
// never carry an audit-core error kind since they never reach a service.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, r, http.StatusBadRequest, "Bad Request", detail, "")
}

// WriteMethodNotAllowed writes a 405; reachable only for paths registered
// without the Go 1.22 method-pattern routing (defensive, not currently hit).
func WriteMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeProblem(w, r, http.StatusMethodNotAllowed, "Method Not Allowed", "The HTTP method is not supported for this endpoint", "")
}

// WriteJSON writes a 2xx JSON body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
