package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"correspondence/internal/communication/models"
	"correspondence/internal/communication/store"
	dirModels "correspondence/internal/directory/models"
	procModels "correspondence/internal/procedure/models"
	"correspondence/pkg/attrs"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
	"correspondence/pkg/platform/sentinel"
	"correspondence/pkg/platform/tx"
	"correspondence/pkg/requestcontext"
)

const (
	opAccept  = "accept"
	opReject  = "reject"
	opArchive = "archive"
)

// Inbox processes the recipient side: accept, reject and archive.
type Inbox struct {
	base
}

func NewInbox(store Store, procedures Procedures, directory Directory, txManager tx.Manager, opts ...Option) *Inbox {
	return &Inbox{base: newBase(store, procedures, directory, txManager, opts)}
}

// BatchResult reports which communications a batch action changed.
type BatchResult struct {
	Date time.Time            `json:"date"`
	IDs  []id.CommunicationID `json:"ids"`
}

// Accept marks pending communications addressed to the actor as received.
func (i *Inbox) Accept(ctx context.Context, accountID id.AccountID, ids []id.CommunicationID) (result *BatchResult, err error) {
	ctx, finish := i.start(ctx, opAccept, attribute.Int("communications", len(ids)))
	defer func() { finish(err) }()

	now := requestcontext.Now(ctx)
	err = i.tx.RunInTx(ctx, func(ctx context.Context) error {
		items, err := i.selectForAction(ctx, ids, store.PartyRecipient, accountID, models.StatusPending)
		if err != nil {
			return err
		}
		update := models.StatusUpdate{Status: models.StatusReceived, ReceivedDate: &now}
		if err := i.store.UpdateStatus(ctx, idsOf(items), update); err != nil {
			return wrapInternal(err, "failed to accept communications")
		}
		result = &BatchResult{Date: now, IDs: idsOf(items)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	i.logger.InfoContext(ctx, "communications accepted",
		attrs.RequestID, requestcontext.RequestID(ctx),
		attrs.AccountID, accountID.String(),
		"count", len(result.IDs),
	)
	return result, nil
}

// Reject returns pending communications to their sender with a reason.
func (i *Inbox) Reject(ctx context.Context, accountID id.AccountID, ids []id.CommunicationID, description string) (result *BatchResult, err error) {
	ctx, finish := i.start(ctx, opReject, attribute.Int("communications", len(ids)))
	defer func() { finish(err) }()

	description = strings.TrimSpace(description)
	if description == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "a rejection reason is required")
	}
	actor, err := i.directory.Resolve(ctx, accountID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	err = i.tx.RunInTx(ctx, func(ctx context.Context) error {
		items, err := i.selectForAction(ctx, ids, store.PartyRecipient, accountID, models.StatusPending)
		if err != nil {
			return err
		}
		update := models.StatusUpdate{
			Status:       models.StatusRejected,
			ReceivedDate: &now,
			ActionLog:    &models.ActionLog{FullName: actor.Officer.FullName, Date: now, Description: description},
		}
		if err := i.store.UpdateStatus(ctx, idsOf(items), update); err != nil {
			return wrapInternal(err, "failed to reject communications")
		}
		result = &BatchResult{Date: now, IDs: idsOf(items)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	i.logger.InfoContext(ctx, "communications rejected",
		attrs.RequestID, requestcontext.RequestID(ctx),
		attrs.AccountID, accountID.String(),
		"count", len(result.IDs),
	)
	return result, nil
}

// ArchiveRequest closes received communications. Account is the resolved
// actor; Date stamps both the action log and procedure completion.
type ArchiveRequest struct {
	IDs         []id.CommunicationID
	Description string
	State       procModels.State
	Account     *dirModels.Account
	Date        time.Time
}

// ArchiveResult lists the archived communications and the procedures that
// were completed by them, each procedure once.
type ArchiveResult struct {
	Items     []*models.Communication
	Completed []id.ProcedureID
}

// Archive runs inside the caller's transaction, which also writes the
// archive records. Communications carrying the original complete their
// procedure with the given terminal state.
func (i *Inbox) Archive(ctx context.Context, req ArchiveRequest) (result *ArchiveResult, err error) {
	ctx, finish := i.start(ctx, opArchive, attribute.Int("communications", len(req.IDs)))
	defer func() { finish(err) }()

	if !req.State.IsTerminal() {
		return nil, dErrors.New(dErrors.CodeValidation, "archiving requires a terminal procedure state")
	}
	err = i.tx.RunInTx(ctx, func(ctx context.Context) error {
		items, err := i.selectForAction(ctx, req.IDs, store.PartyRecipient, req.Account.ID, models.StatusReceived)
		if err != nil {
			return err
		}
		update := models.StatusUpdate{
			Status:    models.StatusArchived,
			ActionLog: &models.ActionLog{FullName: req.Account.Officer.FullName, Date: req.Date, Description: req.Description},
		}
		if err := i.store.UpdateStatus(ctx, idsOf(items), update); err != nil {
			return wrapInternal(err, "failed to archive communications")
		}

		var procedures []id.ProcedureID
		for _, c := range items {
			if c.Origin.CarriesOriginal() {
				procedures = append(procedures, c.Procedure.ID)
			}
		}
		procedures = dedupe(procedures)
		for _, procedureID := range procedures {
			if err := i.procedures.UpdateState(ctx, procedureID, procModels.CompletionPatch(req.State, req.Date)); err != nil {
				return err
			}
		}
		result = &ArchiveResult{Items: items, Completed: procedures}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetOne returns a communication to its recipient.
func (i *Inbox) GetOne(ctx context.Context, commID id.CommunicationID, accountID id.AccountID) (*models.Communication, error) {
	c, err := i.store.FindByID(ctx, commID)
	if err != nil {
		return nil, notFoundOr(err, "communication "+commID.String()+" not found")
	}
	if c.Recipient.AccountID != accountID {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to access this communication")
	}
	return c, nil
}

// ListInbox lists communications addressed to the actor, highest priority
// first.
func (i *Inbox) ListInbox(ctx context.Context, accountID id.AccountID, f models.InboxFilter) (*models.Page, error) {
	page, err := i.store.ListInbox(ctx, accountID, f)
	if err != nil {
		return nil, wrapInternal(err, "failed to list inbox")
	}
	return &page, nil
}

// WorkflowEntry is a communication with organisation names resolved for
// timeline display.
type WorkflowEntry struct {
	*models.Communication
	SenderDependency     string `json:"sender_dependency"`
	SenderInstitution    string `json:"sender_institution"`
	RecipientDependency  string `json:"recipient_dependency"`
	RecipientInstitution string `json:"recipient_institution"`
}

// Workflow returns every communication of a procedure in send order.
func (i *Inbox) Workflow(ctx context.Context, procedureID id.ProcedureID) ([]WorkflowEntry, error) {
	if _, err := i.procedures.Get(ctx, procedureID); err != nil {
		return nil, err
	}
	comms, err := i.store.ListByProcedure(ctx, procedureID)
	if err != nil {
		return nil, wrapInternal(err, "failed to load workflow")
	}

	var depIDs []id.DependencyID
	var instIDs []id.InstitutionID
	for _, c := range comms {
		depIDs = append(depIDs, c.Sender.DependencyID, c.Recipient.DependencyID)
		instIDs = append(instIDs, c.Sender.InstitutionID, c.Recipient.InstitutionID)
	}
	deps, err := i.directory.DependencyNames(ctx, dedupe(depIDs))
	if err != nil {
		return nil, err
	}
	insts, err := i.directory.InstitutionNames(ctx, dedupe(instIDs))
	if err != nil {
		return nil, err
	}

	out := make([]WorkflowEntry, 0, len(comms))
	for _, c := range comms {
		out = append(out, WorkflowEntry{
			Communication:        c,
			SenderDependency:     deps[c.Sender.DependencyID],
			SenderInstitution:    insts[c.Sender.InstitutionID],
			RecipientDependency:  deps[c.Recipient.DependencyID],
			RecipientInstitution: insts[c.Recipient.InstitutionID],
		})
	}
	return out, nil
}

// Restore returns an archived communication to the actor's side when its
// archive is removed. When the actor is not the original recipient a
// continuation communication is created and the archived one is completed.
// It returns whichever communication is now in the actor's inbox and runs
// inside the caller's transaction.
func (i *Inbox) Restore(ctx context.Context, commID id.CommunicationID, actor *dirModels.Account, continuation bool) (*models.Communication, error) {
	c, err := i.store.FindByIDForUpdate(ctx, commID)
	if err != nil {
		return nil, notFoundOr(err, "archived communication not found")
	}
	if c.Status != models.StatusArchived {
		return nil, dErrors.New(dErrors.CodeConflict, "the procedure is not archived")
	}
	now := requestcontext.Now(ctx)

	next := models.StatusReceived
	if continuation {
		next = models.StatusCompleted
	}
	update := models.StatusUpdate{Status: next, ClearActionLog: true}
	if err := i.store.UpdateStatus(ctx, []id.CommunicationID{c.ID}, update); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, alreadyHeld()
		}
		return nil, wrapInternal(err, "failed to restore communication")
	}
	update.Apply(c)
	current := c
	if continuation {
		parentID := c.ID
		cont := &models.Communication{
			ID:               id.NewCommunicationID(),
			Procedure:        c.Procedure,
			Sender:           c.Recipient,
			Recipient:        participantOf(actor),
			Status:           models.StatusReceived,
			SentDate:         now,
			ReceivedDate:     &now,
			Origin:           c.Origin,
			ParentID:         &parentID,
			Reference:        ContinuationReference,
			AttachmentsCount: c.AttachmentsCount,
		}
		if err := i.store.Insert(ctx, []*models.Communication{cont}); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return nil, alreadyHeld()
			}
			return nil, wrapInternal(err, "failed to create continuation")
		}
		current = cont
	}
	if c.Origin.CarriesOriginal() {
		if err := i.procedures.UpdateState(ctx, c.Procedure.ID, procModels.ReopenPatch(now)); err != nil {
			return nil, err
		}
	}
	return current, nil
}

// ContinuationReference marks communications created by un-archiving on
// behalf of another officer.
const ContinuationReference = "PARA SU CONTINUACION"
