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

// ApplyService implements C7: it groups pending Actions by their target
// disposition and dispatches each group to the inventory collaborator,
// applying partial-failure semantics per group.
type ApplyService struct {
	db            *sql.DB
	sessions      *store.SessionStore
	actions       *store.ActionStore
	inventory     *collaborators.InventoryClient
	notifications *collaborators.NotificationClient
}

func NewApplyService(db *sql.DB, sessions *store.SessionStore, actions *store.ActionStore, inventory *collaborators.InventoryClient, notifications *collaborators.NotificationClient) *ApplyService {
	return &ApplyService{db: db, sessions: sessions, actions: actions, inventory: inventory, notifications: notifications}
}

type moveGroupKey struct {
	toLocationID       int64
	responsibleIDIsSet bool
	responsibleIDNull  bool
	responsibleID      int64
}

// ApplySession dispatches every pending move Action, grouped by
// (to_location_id, responsible_id_is_set, responsible_id) — the shape the
// inventory bulk-move endpoint accepts. Per group, either every Action ends
// up done or every one ends up failed (P5); a group's failure never rolls
// back another group's success, and the session only reaches `applied`
// once every Action it owns is done (P6, I5).
func (a *ApplyService) ApplySession(ctx context.Context, sessionID int64, token string) (*model.Session, error) {
	sess, err := a.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, auditerr.NotFoundf("session_not_found", "session %d not found", sessionID)
	}
	if sess.Status != model.SessionApproved {
		return nil, auditerr.Conflictf("session_not_approved", "session %d is not approved", sessionID)
	}

	pending, err := a.actions.ListPendingForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	groups := map[moveGroupKey][]*model.Action{}
	order := []moveGroupKey{}
	for _, act := range pending {
		if act.ActionType != model.ActionMove {
			continue
		}
		var payload model.MovePayload
		if err := json.Unmarshal(act.Payload, &payload); err != nil {
			continue
		}
		key := moveGroupKey{toLocationID: payload.ToLocationID, responsibleIDIsSet: payload.ResponsibleIDIsSet}
		if payload.ResponsibleIDIsSet && payload.ResponsibleID != nil {
			key.responsibleID = *payload.ResponsibleID
		}
		key.responsibleIDNull = payload.ResponsibleIDIsSet && payload.ResponsibleID == nil
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], act)
	}

	anyFailed := false
	for _, key := range order {
		actions := groups[key]
		itemIDs := make([]int64, 0, len(actions))
		for _, act := range actions {
			var payload model.MovePayload
			if err := json.Unmarshal(act.Payload, &payload); err == nil {
				itemIDs = append(itemIDs, payload.ItemID)
			}
		}

		req := collaborators.BulkMoveRequest{ItemIDs: itemIDs, LocationID: key.toLocationID, ResponsibleIDIsSet: key.responsibleIDIsSet}
		if key.responsibleIDIsSet && !key.responsibleIDNull {
			id := key.responsibleID
			req.ResponsibleID = &id
		}

		if err := a.inventory.BulkMove(ctx, token, req); err != nil {
			anyFailed = true
			errMsg := err.Error()
			for _, act := range actions {
				_ = a.actions.MarkStatus(ctx, act.ID, model.ActionFailed, &errMsg)
			}
			continue
		}

		for _, act := range actions {
			_ = a.actions.MarkStatus(ctx, act.ID, model.ActionDone, nil)
		}
	}

	if anyFailed {
		return a.sessions.Get(ctx, sessionID)
	}

	notDone, err := a.actions.CountNotDone(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if notDone > 0 {
		return sess, nil
	}

	now := time.Now().UTC()
	sess.Status = model.SessionApplied
	sess.AppliedAt = &now
	if err := a.saveApplied(ctx, sess); err != nil {
		return nil, err
	}

	var recipients []int64
	if sess.StartedBy != nil {
		recipients = append(recipients, *sess.StartedBy)
	}
	if sess.ClosedBy != nil {
		recipients = append(recipients, *sess.ClosedBy)
	}
	if sess.ApprovedBy != nil {
		recipients = append(recipients, *sess.ApprovedBy)
	}
	a.notifications.CreateInternal(ctx, recipients, "info", "Audit session applied",
		fmt.Sprintf("Session #%d actions have all been applied.", sess.ID),
		map[string]any{"session_id": sess.ID, "status": string(sess.Status)},
		"audit_session_applied", fmt.Sprintf("audit:session:%d:applied", sess.ID))

	return sess, nil
}

func (a *ApplyService) saveApplied(ctx context.Context, sess *model.Session) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := a.sessions.Save(ctx, tx, sess); err != nil {
		return err
	}
	return tx.Commit()
}
