package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"correspondence/internal/communication/models"
	"correspondence/internal/communication/store"
	dirModels "correspondence/internal/directory/models"
	dirService "correspondence/internal/directory/service"
	procModels "correspondence/internal/procedure/models"
	"correspondence/pkg/attrs"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
	"correspondence/pkg/platform/sentinel"
	"correspondence/pkg/platform/tx"
	"correspondence/pkg/requestcontext"
)

const (
	opInitiate = "initiate"
	opForward  = "forward"
	opResend   = "resend"
	opCancel   = "cancel"
)

// Router creates, forwards, resends and cancels communications.
type Router struct {
	base
}

func NewRouter(store Store, procedures Procedures, directory Directory, txManager tx.Manager, opts ...Option) *Router {
	return &Router{base: newBase(store, procedures, directory, txManager, opts)}
}

// Recipient is one addressee of a send.
type Recipient struct {
	AccountID  id.AccountID
	IsOriginal bool
}

// SendDetails are the free-form fields copied onto every communication of
// a send.
type SendDetails struct {
	Reference        string
	Priority         int
	AttachmentsCount int
	InternalNumber   string
}

type InitiateRequest struct {
	ProcedureID id.ProcedureID
	Recipients  []Recipient
	SendDetails
}

// ReplyRequest is used by Forward and Resend; the procedure is the one of
// the referenced communication.
type ReplyRequest struct {
	CommunicationID id.CommunicationID
	Recipients      []Recipient
	SendDetails
}

type resolvedRecipient struct {
	account *dirModels.Account
	origin  models.Origin
}

// Initiate makes the first send of a registered procedure and moves it to
// EN_REVISION.
func (r *Router) Initiate(ctx context.Context, senderID id.AccountID, req InitiateRequest) (out []*models.Communication, err error) {
	ctx, finish := r.start(ctx, opInitiate, attribute.String(attrs.ProcedureID, req.ProcedureID.String()))
	defer func() { finish(err) }()

	sender, recipients, err := r.resolveParties(ctx, senderID, req.Recipients)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	err = r.tx.RunInTx(ctx, func(ctx context.Context) error {
		proc, err := r.procedures.Lock(ctx, req.ProcedureID)
		if err != nil {
			return err
		}
		if err := proc.CanStart(); err != nil {
			return err
		}
		if err := r.ensureNotInFlight(ctx, proc.ID, recipients); err != nil {
			return err
		}
		batch := build(sender, recipients, refOf(proc), nil, req.SendDetails, now)
		if err := models.ValidateBatch(batch, models.OriginOriginal); err != nil {
			return err
		}
		if err := r.insert(ctx, batch); err != nil {
			return err
		}
		if err := r.procedures.UpdateState(ctx, proc.ID, procModels.StartPatch(now)); err != nil {
			return err
		}
		out = batch
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.metrics.AddCreated(opInitiate, len(out))
	r.logger.InfoContext(ctx, "procedure sent",
		attrs.RequestID, requestcontext.RequestID(ctx),
		attrs.ProcedureID, req.ProcedureID.String(),
		attrs.AccountID, senderID.String(),
		"recipients", len(out),
	)
	return out, nil
}

// Forward sends a received communication on. The current communication is
// completed and becomes the parent of the new ones.
func (r *Router) Forward(ctx context.Context, senderID id.AccountID, req ReplyRequest) (out []*models.Communication, err error) {
	ctx, finish := r.start(ctx, opForward, attribute.String(attrs.CommunicationID, req.CommunicationID.String()))
	defer func() { finish(err) }()

	sender, recipients, err := r.resolveParties(ctx, senderID, req.Recipients)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	err = r.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := r.store.FindByIDForUpdate(ctx, req.CommunicationID)
		if err != nil {
			return notFoundOr(err, fmt.Sprintf("communication %s not found", req.CommunicationID))
		}
		if current.Recipient.AccountID != senderID {
			return dErrors.New(dErrors.CodeBadRequest, "you are not the current recipient of this communication")
		}
		if current.Status != models.StatusReceived {
			return dErrors.New(dErrors.CodeBadRequest, "the current communication has not been received")
		}
		proc, err := r.procedures.Lock(ctx, current.Procedure.ID)
		if err != nil {
			return err
		}
		if err := r.ensureNotInFlight(ctx, proc.ID, recipients); err != nil {
			return err
		}
		parentID := current.ID
		batch := build(sender, recipients, refOf(proc), &parentID, req.SendDetails, now)
		inheritLegacy(batch, current.Origin)
		if err := models.ValidateBatch(batch, current.Origin); err != nil {
			return err
		}
		if err := r.insert(ctx, batch); err != nil {
			return err
		}
		if err := r.store.UpdateStatus(ctx, []id.CommunicationID{current.ID}, models.StatusUpdate{Status: models.StatusCompleted}); err != nil {
			return wrapInternal(err, "failed to complete communication")
		}
		out = batch
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.metrics.AddCreated(opForward, len(out))
	r.logger.InfoContext(ctx, "communication forwarded",
		attrs.RequestID, requestcontext.RequestID(ctx),
		attrs.CommunicationID, req.CommunicationID.String(),
		attrs.AccountID, senderID.String(),
		"recipients", len(out),
	)
	return out, nil
}

// Resend re-targets a communication the actor sent. Rejected items are
// kept as forwarding, auto-rejected items are replaced, and a pending
// original may be complemented with further copies.
func (r *Router) Resend(ctx context.Context, senderID id.AccountID, req ReplyRequest) (out []*models.Communication, err error) {
	ctx, finish := r.start(ctx, opResend, attribute.String(attrs.CommunicationID, req.CommunicationID.String()))
	defer func() { finish(err) }()

	sender, recipients, err := r.resolveParties(ctx, senderID, req.Recipients)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	err = r.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := r.store.FindByIDForUpdate(ctx, req.CommunicationID)
		if err != nil || current.Sender.AccountID != senderID {
			if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
				return wrapInternal(err, "failed to load communication")
			}
			return dErrors.Newf(dErrors.CodeNotFound, "communication %s sent by %s not found", req.CommunicationID, senderID)
		}
		proc, err := r.procedures.Lock(ctx, current.Procedure.ID)
		if err != nil {
			return err
		}
		if err := r.ensureNotInFlight(ctx, proc.ID, recipients); err != nil {
			return err
		}
		batch := build(sender, recipients, refOf(proc), current.ParentID, req.SendDetails, now)
		inheritLegacy(batch, current.Origin)

		switch current.Status {
		case models.StatusRejected:
			if err := models.ValidateBatch(batch, current.Origin); err != nil {
				return err
			}
			if err := r.store.UpdateStatus(ctx, []id.CommunicationID{current.ID}, models.StatusUpdate{Status: models.StatusForwarding}); err != nil {
				return wrapInternal(err, "failed to update communication")
			}
		case models.StatusAutoRejected:
			if err := models.ValidateBatch(batch, current.Origin); err != nil {
				return err
			}
			if err := r.store.Delete(ctx, []id.CommunicationID{current.ID}); err != nil {
				return wrapInternal(err, "failed to remove communication")
			}
		case models.StatusPending:
			if !current.Origin.SendsAsOriginal() {
				return dErrors.New(dErrors.CodeBadRequest, "no further sends can be made from a copy")
			}
			for _, c := range batch {
				if c.Origin == models.OriginOriginal {
					return dErrors.New(dErrors.CodeBadRequest, "the original procedure has already been sent")
				}
			}
		default:
			return dErrors.New(dErrors.CodeConflict, "this communication cannot be resent")
		}

		if err := r.insert(ctx, batch); err != nil {
			return err
		}
		out = batch
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.metrics.AddCreated(opResend, len(out))
	r.logger.InfoContext(ctx, "communication resent",
		attrs.RequestID, requestcontext.RequestID(ctx),
		attrs.CommunicationID, req.CommunicationID.String(),
		attrs.AccountID, senderID.String(),
		"recipients", len(out),
	)
	return out, nil
}

// CanceledItem identifies a deleted communication and whose inbox it left.
type CanceledItem struct {
	ID                 id.CommunicationID `json:"id"`
	RecipientAccountID id.AccountID       `json:"recipient_account_id"`
}

type CancelResult struct {
	Canceled    []CanceledItem       `json:"canceled"`
	Restored    []RestoredItem       `json:"restored"`
	CanceledIDs []id.CommunicationID `json:"canceled_ids"`
}

// Cancel deletes pending or auto-rejected communications the actor sent and
// restores whatever each one had moved on: the parent back to the actor's
// inbox or the procedure back to INSCRITO.
func (r *Router) Cancel(ctx context.Context, senderID id.AccountID, ids []id.CommunicationID) (result *CancelResult, err error) {
	ctx, finish := r.start(ctx, opCancel, attribute.Int("communications", len(ids)))
	defer func() { finish(err) }()

	err = r.tx.RunInTx(ctx, func(ctx context.Context) error {
		items, err := r.selectForAction(ctx, ids, store.PartySender, senderID,
			models.StatusPending, models.StatusAutoRejected)
		if err != nil {
			return err
		}
		canceledIDs := idsOf(items)
		if err := r.store.Delete(ctx, canceledIDs); err != nil {
			return wrapInternal(err, "failed to cancel communications")
		}
		restored, err := r.restore(ctx, senderID, items)
		if err != nil {
			return err
		}
		result = &CancelResult{Restored: restored, CanceledIDs: canceledIDs}
		for _, c := range items {
			result.Canceled = append(result.Canceled, CanceledItem{ID: c.ID, RecipientAccountID: c.Recipient.AccountID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, item := range result.Restored {
		r.metrics.IncrementRestored(string(item.Type))
	}
	r.logger.InfoContext(ctx, "communications canceled",
		attrs.RequestID, requestcontext.RequestID(ctx),
		attrs.AccountID, senderID.String(),
		"canceled", len(result.CanceledIDs),
		"restored", len(result.Restored),
	)
	return result, nil
}

// OutboxEntry is a sent communication with its auto-reject countdown.
type OutboxEntry struct {
	*models.Communication
	RemainingTimeMs *int64 `json:"remaining_time,omitempty"`
}

type OutboxPage struct {
	Items []OutboxEntry `json:"items"`
	Total int           `json:"total"`
}

// ListOutbox lists what the actor sent that is still awaiting action.
func (r *Router) ListOutbox(ctx context.Context, senderID id.AccountID, f models.OutboxFilter) (*OutboxPage, error) {
	page, err := r.store.ListOutbox(ctx, senderID, f)
	if err != nil {
		return nil, wrapInternal(err, "failed to list outbox")
	}
	now := requestcontext.Now(ctx)
	out := &OutboxPage{Items: make([]OutboxEntry, 0, len(page.Items)), Total: page.Total}
	for _, c := range page.Items {
		entry := OutboxEntry{Communication: c}
		if left, ok := r.RemainingTime(c, now); ok {
			ms := left.Milliseconds()
			entry.RemainingTimeMs = &ms
		}
		out.Items = append(out.Items, entry)
	}
	return out, nil
}

// resolveParties checks the recipient list and resolves every account.
func (r *Router) resolveParties(ctx context.Context, senderID id.AccountID, targets []Recipient) (*dirModels.Account, []resolvedRecipient, error) {
	if len(targets) == 0 {
		return nil, nil, dErrors.New(dErrors.CodeBadRequest, "at least one recipient is required")
	}
	accountIDs := make([]id.AccountID, len(targets))
	seen := make(map[id.AccountID]bool, len(targets))
	for i, t := range targets {
		if t.AccountID == senderID {
			return nil, nil, dErrors.New(dErrors.CodeBadRequest, "you cannot send a communication to yourself")
		}
		if seen[t.AccountID] {
			return nil, nil, dErrors.Newf(dErrors.CodeBadRequest, "recipient %s is listed more than once", t.AccountID)
		}
		seen[t.AccountID] = true
		accountIDs[i] = t.AccountID
	}

	sender, err := r.directory.Resolve(ctx, senderID)
	if err != nil {
		return nil, nil, err
	}
	accounts, err := r.directory.ResolveMany(ctx, accountIDs)
	if err != nil {
		var re *dirService.ResolveError
		if errors.As(err, &re) && dErrors.HasCode(re.Err, dErrors.CodeNotFound) {
			return nil, nil, dErrors.Newf(dErrors.CodeBadRequest, "Recipient %s does not exist", re.AccountID)
		}
		return nil, nil, err
	}
	out := make([]resolvedRecipient, len(targets))
	for i, t := range targets {
		out[i] = resolvedRecipient{account: accounts[i], origin: models.OriginOf(t.IsOriginal)}
	}
	return sender, out, nil
}

// ensureNotInFlight fails when any recipient already holds the procedure.
// The partial unique index backs this check under concurrency.
func (r *Router) ensureNotInFlight(ctx context.Context, procedureID id.ProcedureID, recipients []resolvedRecipient) error {
	accountIDs := make([]id.AccountID, len(recipients))
	for i, rc := range recipients {
		accountIDs[i] = rc.account.ID
	}
	dup, err := r.store.FindInFlight(ctx, procedureID, accountIDs)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return wrapInternal(err, "failed to check recipients")
	}
	return dErrors.Newf(dErrors.CodeBadRequest, "%s already has the procedure in inbox", dup.Recipient.FullName)
}

func (r *Router) insert(ctx context.Context, batch []*models.Communication) error {
	if err := r.store.Insert(ctx, batch); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return alreadyHeld()
		}
		return wrapInternal(err, "failed to save communications")
	}
	return nil
}

func build(sender *dirModels.Account, recipients []resolvedRecipient, proc models.ProcedureRef, parentID *id.CommunicationID, d SendDetails, now time.Time) []*models.Communication {
	from := participantOf(sender)
	batch := make([]*models.Communication, 0, len(recipients))
	for _, rc := range recipients {
		c := &models.Communication{
			ID:               id.NewCommunicationID(),
			Procedure:        proc,
			Sender:           from,
			Recipient:        participantOf(rc.account),
			Status:           models.StatusPending,
			SentDate:         now,
			Origin:           rc.origin,
			Reference:        d.Reference,
			Priority:         d.Priority,
			AttachmentsCount: d.AttachmentsCount,
			InternalNumber:   d.InternalNumber,
		}
		if parentID != nil {
			p := *parentID
			c.ParentID = &p
		}
		batch = append(batch, c)
	}
	return batch
}

// inheritLegacy keeps sends from a legacy row untracked like the row itself.
func inheritLegacy(batch []*models.Communication, from models.Origin) {
	if from != models.OriginLegacy {
		return
	}
	for _, c := range batch {
		c.Origin = models.OriginLegacy
	}
}

func participantOf(acc *dirModels.Account) models.Participant {
	return models.Participant{
		AccountID:     acc.ID,
		DependencyID:  acc.DependencyID,
		InstitutionID: acc.InstitutionID,
		FullName:      acc.Officer.FullName,
		JobTitle:      acc.Officer.JobTitle,
	}
}

func refOf(p *procModels.Procedure) models.ProcedureRef {
	return models.ProcedureRef{ID: p.ID, Code: p.Code, Group: p.Group, Reference: p.Reference}
}

// alreadyHeld reports an in-flight collision caught by the store rather
// than by ensureNotInFlight.
func alreadyHeld() error {
	return dErrors.New(dErrors.CodeBadRequest, "a recipient already has the procedure in inbox")
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, msg)
	}
	return wrapInternal(err, "failed to load communication")
}
