// Package model defines the audit core's persisted entities: Plan, Session,
// ExpectedItem, Scan, ItemResult, Discrepancy, and Action.
package model

// PlanStatus is the audit_plan_status enum.
type PlanStatus string

const (
	PlanDraft     PlanStatus = "draft"
	PlanScheduled PlanStatus = "scheduled"
	PlanActive    PlanStatus = "active"
	PlanClosed    PlanStatus = "closed"
	PlanCanceled  PlanStatus = "canceled"
)

// ScopeType is the audit_scope_type enum describing what a Plan covers.
type ScopeType string

const (
	ScopeLocation   ScopeType = "location"
	ScopeDepartment ScopeType = "department"
	ScopeCustom     ScopeType = "custom"
)

// SessionStatus is the audit_session_status enum; the transitions between
// these states are enforced by the services in pkg/audit/service.
type SessionStatus string

const (
	SessionDraft             SessionStatus = "draft"
	SessionInProgress        SessionStatus = "in_progress"
	SessionReconciling       SessionStatus = "reconciling"
	SessionAwaitingApproval  SessionStatus = "awaiting_approval"
	SessionApproved          SessionStatus = "approved"
	SessionApplied           SessionStatus = "applied"
	SessionClosed            SessionStatus = "closed"
	SessionCanceled          SessionStatus = "canceled"
)

// ItemResultStatus is the audit_item_result_status enum.
type ItemResultStatus string

const (
	ResultMissing     ItemResultStatus = "missing"
	ResultFound       ItemResultStatus = "found"
	ResultFoundInPlace ItemResultStatus = "found_in_place"
)

// DiscrepancyType is the audit_discrepancy_type enum.
type DiscrepancyType string

const (
	DiscrepancyMissing        DiscrepancyType = "missing"
	DiscrepancyMisplaced      DiscrepancyType = "misplaced"
	DiscrepancyUnexpected     DiscrepancyType = "unexpected"
	DiscrepancyDuplicate      DiscrepancyType = "duplicate"
	DiscrepancyUnknownBarcode DiscrepancyType = "unknown_barcode"
)

// ResolutionStatus is the audit_resolution_status enum.
type ResolutionStatus string

const (
	ResolutionOpen     ResolutionStatus = "open"
	ResolutionResolved ResolutionStatus = "resolved"
	ResolutionIgnored  ResolutionStatus = "ignored"
)

// ActionType is the audit_action_type enum.
type ActionType string

const (
	ActionMove              ActionType = "move"
	ActionAssignResponsible ActionType = "assign_responsible"
	ActionClearResponsible  ActionType = "clear_responsible"
)

// ActionStatus is the audit_action_status enum.
type ActionStatus string

const (
	ActionPending ActionStatus = "pending"
	ActionSent    ActionStatus = "sent"
	ActionDone    ActionStatus = "done"
	ActionFailed  ActionStatus = "failed"
)
