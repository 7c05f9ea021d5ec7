package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/djsadd/inventory-audit-service/pkg/api"
	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
	"github.com/djsadd/inventory-audit-service/pkg/audit/service"
	"github.com/djsadd/inventory-audit-service/pkg/barcode"
	"github.com/djsadd/inventory-audit-service/pkg/collaborators"
)

// SessionHandlers serves every /sessions/... route.
type SessionHandlers struct {
	sessions       *service.SessionService
	resolutions    *service.ResolutionService
	apply          *service.ApplyService
	location       *collaborators.LocationClient
	inventory      *collaborators.InventoryClient
	roleAuditor    string
	roleSupervisor string
	roleAdmin      string
}

func NewSessionHandlers(
	sessions *service.SessionService,
	resolutions *service.ResolutionService,
	apply *service.ApplyService,
	location *collaborators.LocationClient,
	inventory *collaborators.InventoryClient,
	roleAuditor, roleSupervisor, roleAdmin string,
) *SessionHandlers {
	return &SessionHandlers{
		sessions: sessions, resolutions: resolutions, apply: apply, location: location, inventory: inventory,
		roleAuditor: roleAuditor, roleSupervisor: roleSupervisor, roleAdmin: roleAdmin,
	}
}

type createSessionRequest struct {
	PlanID     *int64 `json:"plan_id"`
	LocationID int64  `json:"location_id"`
}

// Create requires room access on the target location before a session may
// be opened against it.
func (h *SessionHandlers) Create(w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, h.roleAdmin, h.roleAuditor) {
		return
	}
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, r, "malformed request body")
		return
	}
	if err := h.location.AssertRoomAccess(r.Context(), tokenFromContext(r.Context()), req.LocationID); err != nil {
		api.WriteError(w, r, err)
		return
	}
	sess, err := h.sessions.Create(r.Context(), req.PlanID, req.LocationID)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, sess)
}

func (h *SessionHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	sess, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, sess)
}

func (h *SessionHandlers) List(w http.ResponseWriter, r *http.Request) {
	locationID := queryInt64Ptr(r, "location_id")
	planID := queryInt64Ptr(r, "plan_id")
	var status *model.SessionStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := model.SessionStatus(raw)
		status = &s
	}
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)
	sessions, err := h.sessions.List(r.Context(), locationID, planID, status, limit, offset)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, sessions)
}

func (h *SessionHandlers) Start(w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, h.roleAdmin, h.roleAuditor) {
		return
	}
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	user := userFromContext(r.Context())
	sess, err := h.sessions.StartSession(r.Context(), id, user.ID, tokenFromContext(r.Context()))
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, sess)
}

type createScanRequest struct {
	FoundLocationID int64           `json:"found_location_id"`
	ItemID          *int64          `json:"item_id"`
	BarcodeValue    *string         `json:"barcode_value"`
	Notes           *string         `json:"notes"`
	PhotoURL        *string         `json:"photo_url"`
	ClientScanID    string          `json:"client_scan_id"`
	Extra           json.RawMessage `json:"extra"`
}

func (h *SessionHandlers) CreateScan(w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, h.roleAdmin, h.roleAuditor) {
		return
	}
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	var req createScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, r, "malformed request body")
		return
	}
	if req.ClientScanID == "" {
		api.WriteBadRequest(w, r, "client_scan_id is required")
		return
	}

	if req.BarcodeValue != nil {
		normalized := barcode.Normalize(*req.BarcodeValue)
		req.BarcodeValue = &normalized
	}

	var resolvedItemID *int64
	if req.ItemID == nil && req.BarcodeValue != nil && *req.BarcodeValue != "" {
		item, err := h.inventory.ResolveByBarcode(r.Context(), tokenFromContext(r.Context()), *req.BarcodeValue)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		if item != nil {
			resolvedItemID = &item.ID
		}
	}

	user := userFromContext(r.Context())
	in := service.CreateScanInput{
		FoundLocationID: req.FoundLocationID, ItemID: req.ItemID, BarcodeValue: req.BarcodeValue,
		Notes: req.Notes, PhotoURL: req.PhotoURL, ClientScanID: req.ClientScanID, Extra: req.Extra,
	}
	scan, err := h.sessions.CreateScan(r.Context(), id, in, user.ID, resolvedItemID)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, scan)
}

func (h *SessionHandlers) Close(w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, h.roleAdmin, h.roleAuditor) {
		return
	}
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	user := userFromContext(r.Context())
	sess, err := h.sessions.CloseSession(r.Context(), id, user.ID)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, sess)
}

func (h *SessionHandlers) Approve(w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, h.roleAdmin, h.roleSupervisor) {
		return
	}
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	user := userFromContext(r.Context())
	sess, err := h.resolutions.ApproveSession(r.Context(), id, user.ID)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, sess)
}

func (h *SessionHandlers) BuildActions(w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, h.roleAdmin, h.roleSupervisor) {
		return
	}
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	actions, err := h.resolutions.BuildActionsFromResolutions(r.Context(), id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, actions)
}

func (h *SessionHandlers) Apply(w http.ResponseWriter, r *http.Request) {
	if !requireSystemAdmin(w, r, h.roleAdmin) {
		return
	}
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	sess, err := h.apply.ApplySession(r.Context(), id, tokenFromContext(r.Context()))
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, sess)
}
