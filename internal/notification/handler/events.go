package handler

import (
	"context"
	"log/slog"

	"github.com/tidwall/gjson"

	"correspondence/internal/platform/kafka/consumer"
	"correspondence/pkg/attrs"
	id "correspondence/pkg/domain"
)

// CompletedHandler consumes procedure.completed events. It always returns
// nil so the offset is committed: a failed notification is logged and left
// to the ledger, never redelivered by the broker.
type CompletedHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewCompletedHandler(dispatcher Dispatcher, logger *slog.Logger) *CompletedHandler {
	return &CompletedHandler{dispatcher: dispatcher, logger: logger}
}

func (h *CompletedHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	raw := gjson.GetBytes(msg.Value, "procedure_id")
	procedureID, err := id.ParseProcedureID(raw.String())
	if err != nil {
		h.logger.WarnContext(ctx, "dropping malformed completion event",
			"topic", msg.Topic,
			"offset", msg.Offset,
			attrs.Error, err.Error(),
		)
		return nil
	}
	outcome := h.dispatcher.NotifyCompleted(ctx, procedureID)
	h.logger.DebugContext(ctx, "completion event handled",
		attrs.ProcedureID, procedureID.String(),
		attrs.ProcedureCode, gjson.GetBytes(msg.Value, "code").String(),
		"outcome", string(outcome),
	)
	return nil
}
