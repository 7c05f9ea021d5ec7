package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
	"github.com/djsadd/inventory-audit-service/pkg/audit/store"
	"github.com/djsadd/inventory-audit-service/pkg/auditerr"
	"github.com/djsadd/inventory-audit-service/pkg/collaborators"
)

// ResolutionService implements C6: a supervisor's decision on a
// discrepancy (ResolveDiscrepancy), the approval gate (I3), and the
// materialisation of resolved discrepancies into pending Actions.
type ResolutionService struct {
	db            *sql.DB
	sessions      *store.SessionStore
	discrepancies *store.DiscrepancyStore
	actions       *store.ActionStore
	notifications *collaborators.NotificationClient
}

func NewResolutionService(db *sql.DB, sessions *store.SessionStore, discrepancies *store.DiscrepancyStore, actions *store.ActionStore, notifications *collaborators.NotificationClient) *ResolutionService {
	return &ResolutionService{db: db, sessions: sessions, discrepancies: discrepancies, actions: actions, notifications: notifications}
}

// ResolveDiscrepancy records a supervisor's decision. It has no side effect
// on Actions; the supervisor commits to a decision now and build-actions
// later turns "resolved" rows into concrete work.
func (s *ResolutionService) ResolveDiscrepancy(ctx context.Context, discrepancyID int64, status model.ResolutionStatus, payload json.RawMessage) (*model.Discrepancy, error) {
	d, err := s.discrepancies.Get(ctx, discrepancyID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, auditerr.NotFoundf("discrepancy_not_found", "discrepancy %d not found", discrepancyID)
	}
	return s.discrepancies.Resolve(ctx, discrepancyID, status, payload)
}

// ApproveSession enforces I3: a session may leave awaiting_approval only
// once every discrepancy has been decided.
func (s *ResolutionService) ApproveSession(ctx context.Context, sessionID, approvedBy int64) (*model.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sess, err := s.sessions.GetForUpdate(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, auditerr.NotFoundf("session_not_found", "session %d not found", sessionID)
	}
	if sess.Status != model.SessionAwaitingApproval {
		return nil, auditerr.Conflictf("session_not_awaiting_approval", "session %d is not awaiting_approval", sessionID)
	}

	open, err := s.discrepancies.CountOpen(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if open > 0 {
		return nil, auditerr.Conflictf("discrepancies_not_resolved", "session %d has %d open discrepancies", sessionID, open)
	}

	now := time.Now().UTC()
	sess.Status = model.SessionApproved
	sess.ApprovedBy = &approvedBy
	sess.ApprovedAt = &now

	if err := s.sessions.Save(ctx, tx, sess); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approve_session: %w", err)
	}

	recipients := []int64{approvedBy}
	if sess.StartedBy != nil {
		recipients = append(recipients, *sess.StartedBy)
	}
	if sess.ClosedBy != nil {
		recipients = append(recipients, *sess.ClosedBy)
	}
	s.notifications.CreateInternal(ctx, recipients, "info", "Audit session approved",
		fmt.Sprintf("Session #%d has been approved.", sess.ID),
		map[string]any{"session_id": sess.ID, "location_id": sess.LocationID, "status": string(sess.Status)},
		"audit_session_approved", fmt.Sprintf("audit:session:%d:approved", sess.ID))

	return sess, nil
}

// BuildActionsFromResolutions materialises every resolved move-discrepancy
// into a pending Action. It is idempotent: re-invoking it after a partial
// apply failure inserts zero new rows for discrepancies already built,
// since the UNIQUE(idempotency_key) collision is swallowed (P4).
func (s *ResolutionService) BuildActionsFromResolutions(ctx context.Context, sessionID int64) ([]*model.Action, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, auditerr.NotFoundf("session_not_found", "session %d not found", sessionID)
	}
	if sess.Status != model.SessionApproved {
		return nil, auditerr.Conflictf("session_not_approved", "session %d is not approved", sessionID)
	}

	resolved, err := s.discrepancies.ListResolvedMoves(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var created []*model.Action
	for _, d := range resolved {
		if d.ItemID == nil || len(d.ResolutionPayload) == 0 {
			continue
		}
		var payload model.ResolutionPayload
		if err := json.Unmarshal(d.ResolutionPayload, &payload); err != nil {
			continue
		}
		if payload.Action != "move" || payload.ToLocationID == nil {
			continue
		}

		idempotencyKey := fmt.Sprintf("session:%d:discrepancy:%d:move:%d:%v:%v",
			sessionID, d.ID, *payload.ToLocationID, payload.ResponsibleIDIsSet, responsibleIDString(payload))

		movePayload, err := json.Marshal(model.MovePayload{
			ItemID: *d.ItemID, ToLocationID: *payload.ToLocationID,
			ResponsibleIDIsSet: payload.ResponsibleIDIsSet, ResponsibleID: payload.ResponsibleID,
		})
		if err != nil {
			continue
		}

		action := &model.Action{
			SessionID: sessionID, ActionType: model.ActionMove, Payload: movePayload,
			Status: model.ActionPending, IdempotencyKey: idempotencyKey,
		}
		if err := s.actions.Insert(ctx, action); err != nil {
			if store.IsUniqueViolation(err) {
				continue
			}
			return nil, fmt.Errorf("insert action: %w", err)
		}
		created = append(created, action)
	}
	return created, nil
}

func responsibleIDString(p model.ResolutionPayload) string {
	if !p.ResponsibleIDIsSet || p.ResponsibleID == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d", *p.ResponsibleID)
}
