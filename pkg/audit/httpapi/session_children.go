package httpapi

import (
	"net/http"

	"github.com/djsadd/inventory-audit-service/pkg/api"
	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
	"github.com/djsadd/inventory-audit-service/pkg/audit/store"
)

// SessionChildHandlers serves the read-only GET /sessions/{id}/{expected,
// results,discrepancies,actions} routes. These are plain list reads, so
// they talk to the stores directly rather than through a service.
type SessionChildHandlers struct {
	expected      *store.ExpectedStore
	results       *store.ResultStore
	discrepancies *store.DiscrepancyStore
	actions       *store.ActionStore
}

func NewSessionChildHandlers(expected *store.ExpectedStore, results *store.ResultStore, discrepancies *store.DiscrepancyStore, actions *store.ActionStore) *SessionChildHandlers {
	return &SessionChildHandlers{expected: expected, results: results, discrepancies: discrepancies, actions: actions}
}

func (h *SessionChildHandlers) Expected(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	items, err := h.expected.ListForSession(r.Context(), id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, items)
}

func (h *SessionChildHandlers) Results(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	results, err := h.results.ListForSession(r.Context(), id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, results)
}

func (h *SessionChildHandlers) Discrepancies(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	var dtype *model.DiscrepancyType
	if v := r.URL.Query().Get("type"); v != "" {
		t := model.DiscrepancyType(v)
		dtype = &t
	}
	var resolutionStatus *model.ResolutionStatus
	if v := r.URL.Query().Get("resolution_status"); v != "" {
		s := model.ResolutionStatus(v)
		resolutionStatus = &s
	}

	discrepancies, err := h.discrepancies.ListForSession(r.Context(), id, dtype, resolutionStatus)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, discrepancies)
}

func (h *SessionChildHandlers) Actions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	actions, err := h.actions.ListForSession(r.Context(), id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, actions)
}
