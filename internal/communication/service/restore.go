package service

import (
	"context"
	"errors"

	"correspondence/internal/communication/models"
	procModels "correspondence/internal/procedure/models"
	id "correspondence/pkg/domain"
	"correspondence/pkg/platform/sentinel"
	"correspondence/pkg/requestcontext"
)

// RestoreType says where a canceled send was undone.
type RestoreType string

const (
	// RestoreInbox returned a communication to the actor's inbox.
	RestoreInbox RestoreType = "inbox"
	// RestoreAdministration returned the procedure to INSCRITO.
	RestoreAdministration RestoreType = "administration"
)

type RestoredItem struct {
	Type RestoreType `json:"type"`
	Code string      `json:"code"`
}

// restorePlan collects the writes a cancellation implies.
type restorePlan struct {
	communications []id.CommunicationID
	procedures     []id.ProcedureID
	items          []RestoredItem
}

func (p *restorePlan) inbox(commID id.CommunicationID, code string) {
	p.communications = append(p.communications, commID)
	p.items = append(p.items, RestoredItem{Type: RestoreInbox, Code: code})
}

func (p *restorePlan) administration(procedureID id.ProcedureID, code string) {
	p.procedures = append(p.procedures, procedureID)
	p.items = append(p.items, RestoredItem{Type: RestoreAdministration, Code: code})
}

// restore undoes the effect of each canceled communication. It runs after
// the canceled rows are deleted, inside the same transaction.
func (r *Router) restore(ctx context.Context, senderID id.AccountID, canceled []*models.Communication) ([]RestoredItem, error) {
	plan := &restorePlan{}
	for _, c := range canceled {
		var err error
		if c.Origin == models.OriginLegacy {
			err = r.planLegacy(ctx, plan, senderID, c)
		} else {
			err = r.planExplicit(ctx, plan, c)
		}
		if err != nil {
			return nil, err
		}
	}

	for _, commID := range dedupe(plan.communications) {
		err := r.store.UpdateStatus(ctx, []id.CommunicationID{commID}, models.StatusUpdate{Status: models.StatusReceived})
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return nil, alreadyHeld()
			}
			return nil, wrapInternal(err, "failed to restore communication")
		}
	}
	now := requestcontext.Now(ctx)
	for _, procedureID := range dedupe(plan.procedures) {
		if err := r.procedures.UpdateState(ctx, procedureID, procModels.RegisteredPatch(now)); err != nil {
			return nil, err
		}
	}
	if plan.items == nil {
		plan.items = []RestoredItem{}
	}
	return plan.items, nil
}

// planLegacy handles rows written before origins were tracked. Without a
// parent the actor's latest completed or received stage is reopened, and
// only when there is none does the procedure go back to INSCRITO.
func (r *Router) planLegacy(ctx context.Context, plan *restorePlan, senderID id.AccountID, c *models.Communication) error {
	if c.ParentID != nil {
		plan.inbox(*c.ParentID, c.Procedure.Code)
		return nil
	}
	stage, err := r.store.FindLatestStage(ctx, c.Procedure.ID, senderID)
	switch {
	case err == nil:
		plan.inbox(stage.ID, stage.Procedure.Code)
	case errors.Is(err, sentinel.ErrNotFound):
		plan.administration(c.Procedure.ID, c.Procedure.Code)
	default:
		return wrapInternal(err, "failed to load previous stage")
	}
	return nil
}

// planExplicit handles rows with a known origin. An original reopens its
// parent, or the procedure on a first send. A copy reopens its parent only
// when the parent is itself a copy.
func (r *Router) planExplicit(ctx context.Context, plan *restorePlan, c *models.Communication) error {
	if c.ParentID == nil {
		if c.Origin == models.OriginOriginal {
			plan.administration(c.Procedure.ID, c.Procedure.Code)
		}
		return nil
	}
	if c.Origin == models.OriginOriginal {
		plan.inbox(*c.ParentID, c.Procedure.Code)
		return nil
	}
	parent, err := r.store.FindByID(ctx, *c.ParentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return wrapInternal(err, "failed to load parent communication")
	}
	if parent.Origin == models.OriginCopy {
		plan.inbox(parent.ID, c.Procedure.Code)
	}
	return nil
}
