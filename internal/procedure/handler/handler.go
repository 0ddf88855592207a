package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"correspondence/internal/procedure/models"
	"correspondence/internal/procedure/service"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
	"correspondence/pkg/platform/httputil"
	"correspondence/pkg/requestcontext"
)

// Service defines the procedure operations exposed over HTTP.
type Service interface {
	RegisterExternal(ctx context.Context, actorID id.AccountID, in service.RegisterExternal) (*models.Procedure, error)
	RegisterInternal(ctx context.Context, actorID id.AccountID, in service.RegisterInternal) (*models.Procedure, error)
	Update(ctx context.Context, actorID id.AccountID, procedureID id.ProcedureID, in service.Update) (*models.Procedure, error)
	Get(ctx context.Context, procedureID id.ProcedureID) (*models.Procedure, error)
	GetDetail(ctx context.Context, procedureID id.ProcedureID) (service.DetailView, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts procedure endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/procedures/external", h.HandleRegisterExternal)
	r.Post("/procedures/internal", h.HandleRegisterInternal)
	r.Patch("/procedures/{id}", h.HandleUpdate)
	r.Get("/procedures/{id}", h.HandleGet)
	r.Get("/procedures/{id}/detail", h.HandleGetDetail)
}

func (h *Handler) HandleRegisterExternal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[RegisterExternalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, err := h.service.RegisterExternal(ctx, requestcontext.AccountID(ctx), req.toInput())
	if err != nil {
		h.logFailure(ctx, "external registration failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) HandleRegisterInternal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[RegisterInternalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, err := h.service.RegisterInternal(ctx, requestcontext.AccountID(ctx), req.toInput())
	if err != nil {
		h.logFailure(ctx, "internal registration failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	procedureID, err := id.ParseProcedureID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	p, err := h.service.Update(ctx, requestcontext.AccountID(ctx), procedureID, req.toInput())
	if err != nil {
		h.logFailure(ctx, "procedure update failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	procedureID, err := id.ParseProcedureID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.Get(r.Context(), procedureID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleGetDetail(w http.ResponseWriter, r *http.Request) {
	procedureID, err := id.ParseProcedureID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	view, err := h.service.GetDetail(r.Context(), procedureID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// logFailure logs at warn for client errors and at error otherwise.
func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	args := []any{
		"request_id", requestcontext.RequestID(ctx),
		"account_id", requestcontext.AccountID(ctx).String(),
		"error", err.Error(),
	}
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeTimeout) {
		h.logger.ErrorContext(ctx, msg, args...)
		return
	}
	h.logger.WarnContext(ctx, msg, args...)
}
