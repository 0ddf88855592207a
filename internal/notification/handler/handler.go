package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"correspondence/internal/notification/models"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
	"correspondence/pkg/platform/httputil"
	textutil "correspondence/pkg/platform/strings"
	"correspondence/pkg/requestcontext"
)

const maxObservationIDs = 200

type Dispatcher interface {
	NotifyCompleted(ctx context.Context, procedureID id.ProcedureID) models.Outcome
	SendObservation(ctx context.Context, rawIDs []string, observation string) ([]models.ObservationResult, error)
	MessageStatus(ctx context.Context, messageID string) (string, error)
}

// Handler exposes manual notification endpoints.
type Handler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

func New(dispatcher Dispatcher, logger *slog.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/notifications/observations", h.HandleSendObservation)
	r.Get("/notifications/status/{messageID}", h.HandleMessageStatus)
}

type ObservationRequest struct {
	IDs         []string `json:"ids"`
	Observation string   `json:"observation"`
}

func (r *ObservationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.IDs = textutil.DedupeAndTrim(r.IDs)
	if len(r.IDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "ids are required")
	}
	if len(r.IDs) > maxObservationIDs {
		return dErrors.New(dErrors.CodeValidation, "too many ids")
	}
	return nil
}

// HandleSendObservation handles POST /notifications/observations.
func (h *Handler) HandleSendObservation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ObservationRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	results, err := h.dispatcher.SendObservation(ctx, req.IDs, req.Observation)
	if err != nil {
		h.logger.WarnContext(ctx, "send observation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, results)
}

type statusResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

func (h *Handler) HandleMessageStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	messageID := chi.URLParam(r, "messageID")
	status, err := h.dispatcher.MessageStatus(ctx, messageID)
	if err != nil {
		h.logger.WarnContext(ctx, "message status failed",
			"request_id", requestcontext.RequestID(ctx),
			"message_id", messageID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statusResponse{MessageID: messageID, Status: status})
}
