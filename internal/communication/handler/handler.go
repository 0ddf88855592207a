package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"correspondence/internal/communication/models"
	"correspondence/internal/communication/service"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
	"correspondence/pkg/platform/httputil"
	"correspondence/pkg/requestcontext"
)

// Router defines the sender-side operations.
type Router interface {
	Initiate(ctx context.Context, senderID id.AccountID, req service.InitiateRequest) ([]*models.Communication, error)
	Forward(ctx context.Context, senderID id.AccountID, req service.ReplyRequest) ([]*models.Communication, error)
	Resend(ctx context.Context, senderID id.AccountID, req service.ReplyRequest) ([]*models.Communication, error)
	Cancel(ctx context.Context, senderID id.AccountID, ids []id.CommunicationID) (*service.CancelResult, error)
	ListOutbox(ctx context.Context, senderID id.AccountID, f models.OutboxFilter) (*service.OutboxPage, error)
}

// Inbox defines the recipient-side operations.
type Inbox interface {
	Accept(ctx context.Context, accountID id.AccountID, ids []id.CommunicationID) (*service.BatchResult, error)
	Reject(ctx context.Context, accountID id.AccountID, ids []id.CommunicationID, description string) (*service.BatchResult, error)
	GetOne(ctx context.Context, commID id.CommunicationID, accountID id.AccountID) (*models.Communication, error)
	ListInbox(ctx context.Context, accountID id.AccountID, f models.InboxFilter) (*models.Page, error)
	Workflow(ctx context.Context, procedureID id.ProcedureID) ([]service.WorkflowEntry, error)
}

// Handler exposes communication routing and inbox processing over HTTP.
type Handler struct {
	router Router
	inbox  Inbox
	logger *slog.Logger
}

func New(router Router, inbox Inbox, logger *slog.Logger) *Handler {
	return &Handler{router: router, inbox: inbox, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/communications", h.HandleInitiate)
	r.Post("/communications/{id}/forward", h.HandleForward)
	r.Post("/communications/{id}/resend", h.HandleResend)
	r.Delete("/communications", h.HandleCancel)
	r.Get("/communications/outbox", h.HandleListOutbox)

	r.Get("/inbox", h.HandleListInbox)
	r.Get("/inbox/{id}", h.HandleGetOne)
	r.Post("/inbox/accept", h.HandleAccept)
	r.Post("/inbox/reject", h.HandleReject)

	r.Get("/procedures/{id}/workflow", h.HandleWorkflow)
}

// HandleInitiate handles POST /communications.
func (h *Handler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[InitiateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	out, err := h.router.Initiate(ctx, requestcontext.AccountID(ctx), req.toInput())
	if err != nil {
		h.fail(ctx, w, "initiate failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, out)
}

// HandleForward handles POST /communications/{id}/forward.
func (h *Handler) HandleForward(w http.ResponseWriter, r *http.Request) {
	h.handleReply(w, r, h.router.Forward, "forward failed")
}

// HandleResend handles POST /communications/{id}/resend.
func (h *Handler) HandleResend(w http.ResponseWriter, r *http.Request) {
	h.handleReply(w, r, h.router.Resend, "resend failed")
}

type replyFunc func(ctx context.Context, senderID id.AccountID, req service.ReplyRequest) ([]*models.Communication, error)

func (h *Handler) handleReply(w http.ResponseWriter, r *http.Request, send replyFunc, failure string) {
	ctx := r.Context()
	commID, err := id.ParseCommunicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SendRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	out, err := send(ctx, requestcontext.AccountID(ctx), service.ReplyRequest{
		CommunicationID: commID,
		Recipients:      req.parsedRecipients,
		SendDetails:     req.details(),
	})
	if err != nil {
		h.fail(ctx, w, failure, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, out)
}

// HandleCancel handles DELETE /communications.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[SelectionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := h.router.Cancel(ctx, requestcontext.AccountID(ctx), req.parsedIDs)
	if err != nil {
		h.fail(ctx, w, "cancel failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleListOutbox(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := parseStatus(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ctx := r.Context()
	page, err := h.router.ListOutbox(ctx, requestcontext.AccountID(ctx), models.OutboxFilter{Status: status, Limit: limit, Offset: offset})
	if err != nil {
		h.fail(ctx, w, "list outbox failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) HandleListInbox(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := parseStatus(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	group, err := parseGroup(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ctx := r.Context()
	page, err := h.inbox.ListInbox(ctx, requestcontext.AccountID(ctx), models.InboxFilter{
		Status: status, Group: group, Limit: limit, Offset: offset,
	})
	if err != nil {
		h.fail(ctx, w, "list inbox failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) HandleGetOne(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	commID, err := id.ParseCommunicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.inbox.GetOne(ctx, commID, requestcontext.AccountID(ctx))
	if err != nil {
		h.fail(ctx, w, "get communication failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// HandleAccept handles POST /inbox/accept.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[SelectionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := h.inbox.Accept(ctx, requestcontext.AccountID(ctx), req.parsedIDs)
	if err != nil {
		h.fail(ctx, w, "accept failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleReject handles POST /inbox/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RejectRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := h.inbox.Reject(ctx, requestcontext.AccountID(ctx), req.parsedIDs, req.Description)
	if err != nil {
		h.fail(ctx, w, "reject failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleWorkflow(w http.ResponseWriter, r *http.Request) {
	procedureID, err := id.ParseProcedureID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entries, err := h.inbox.Workflow(r.Context(), procedureID)
	if err != nil {
		h.fail(r.Context(), w, "workflow failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

// fail logs client errors at warn and everything else at error, then
// writes the error response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	args := []any{
		"request_id", requestcontext.RequestID(ctx),
		"account_id", requestcontext.AccountID(ctx).String(),
		"error", err.Error(),
	}
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeTimeout) {
		h.logger.ErrorContext(ctx, msg, args...)
	} else {
		h.logger.WarnContext(ctx, msg, args...)
	}
	httputil.WriteError(w, err)
}
