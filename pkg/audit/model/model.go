package model

import (
	"encoding/json"
	"time"
)

// Plan groups a set of sessions under a scope (a room, a department, or a
// custom selection the caller defines).
type Plan struct {
	ID         int64
	Title      string
	ScopeType  ScopeType
	ScopePayload json.RawMessage
	StartDate  *time.Time
	EndDate    *time.Time
	Status     PlanStatus
	CreatedBy  int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Session is one stocktake of one physical location. Its Status is driven
// exclusively by the C5 state machine in pkg/audit/service.
type Session struct {
	ID                     int64
	PlanID                 *int64
	LocationID             int64
	Status                 SessionStatus
	StartedBy              *int64
	StartedAt              *time.Time
	ClosedBy               *int64
	ClosedAt               *time.Time
	ApprovedBy             *int64
	ApprovedAt             *time.Time
	AppliedAt              *time.Time
	ExpectedSnapshotVersion *string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// ExpectedItem is one row of the immutable snapshot captured when a session
// starts. UNIQUE(session_id, item_id).
type ExpectedItem struct {
	ID                     int64
	SessionID              int64
	ItemID                 int64
	ExpectedLocationID     *int64
	ExpectedResponsibleID  *int64
	BarcodeID              *int64
	CapturedAt             time.Time
}

// Scan is one observation submitted by a mobile auditor. UNIQUE(session_id,
// client_scan_id) provides retry idempotency.
type Scan struct {
	ID             int64
	SessionID      int64
	ScannerUserID  int64
	ScanTime       time.Time
	BarcodeValue   *string
	ItemID         *int64
	FoundLocationID int64
	Notes          *string
	PhotoURL       *string
	ClientScanID   string
	Extra          json.RawMessage
}

// ItemResult tracks one expected item's disposition across the session's
// scans. UNIQUE(session_id, item_id).
type ItemResult struct {
	ID                 int64
	SessionID          int64
	ItemID             int64
	Status             ItemResultStatus
	ExpectedLocationID *int64
	FoundLocationID    *int64
	FirstFoundAt       *time.Time
	LastScanAt         *time.Time
}

// Discrepancy is a classified mismatch between the expected snapshot and
// what was actually scanned, pending supervisor resolution.
type Discrepancy struct {
	ID                 int64
	SessionID          int64
	Type               DiscrepancyType
	ItemID             *int64
	BarcodeValue       *string
	ExpectedLocationID *int64
	FoundLocationID    *int64
	ResolutionStatus   ResolutionStatus
	ResolutionPayload  json.RawMessage
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Action is a concrete, idempotent mutation targeted at the inventory
// service, materialised from a resolved Discrepancy by C6 and executed by C7.
type Action struct {
	ID             int64
	SessionID      int64
	ActionType     ActionType
	Payload        json.RawMessage
	Status         ActionStatus
	IdempotencyKey string
	LastError      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ResolutionPayload is the discriminated shape a supervisor attaches to a
// resolved discrepancy. Only action=="move" is interpreted by C6; other
// actions (or none) produce no Action row. ResponsibleIDIsSet distinguishes
// an explicit "clear responsible" (true, nil) from "leave it alone" (false).
type ResolutionPayload struct {
	Action             string `json:"action,omitempty"`
	ToLocationID       *int64 `json:"to_location_id,omitempty"`
	ResponsibleIDIsSet bool   `json:"-"`
	ResponsibleID      *int64 `json:"responsible_id,omitempty"`
	Reason             string `json:"reason,omitempty"`
}

// UnmarshalJSON records whether "responsible_id" was present in the payload
// at all, since encoding/json collapses "absent" and "null" into the zero
// value of *int64 once decoded into the struct field directly.
func (p *ResolutionPayload) UnmarshalJSON(data []byte) error {
	type alias ResolutionPayload
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = ResolutionPayload(a)
	_, p.ResponsibleIDIsSet = raw["responsible_id"]
	return nil
}

// MovePayload is the payload stored on a materialised move Action.
type MovePayload struct {
	ItemID             int64  `json:"item_id"`
	ToLocationID       int64  `json:"to_location_id"`
	ResponsibleIDIsSet bool   `json:"responsible_id_is_set"`
	ResponsibleID      *int64 `json:"responsible_id"`
}

// DuplicatePayload records how many times an item was scanned, stored in a
// duplicate Discrepancy's resolution_payload.
type DuplicatePayload struct {
	Count int `json:"count"`
}
