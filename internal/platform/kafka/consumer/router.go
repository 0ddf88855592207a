package consumer

import (
	"context"
	"log/slog"
)

// Router dispatches messages to handlers by event type header.
type Router struct {
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewRouter creates an empty router.
func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Register adds a handler for an event type.
func (r *Router) Register(eventType string, handler Handler) {
	r.handlers[eventType] = handler
}

// Handle routes the message by its event_type header. Unknown types are
// skipped so they are committed rather than redelivered forever.
func (r *Router) Handle(ctx context.Context, msg *Message) error {
	eventType := msg.Headers["event_type"]
	handler, ok := r.handlers[eventType]
	if !ok {
		r.logger.WarnContext(ctx, "no handler for event type, skipping message",
			"topic", msg.Topic,
			"event_type", eventType,
			"key", string(msg.Key),
		)
		return nil
	}
	return handler.Handle(ctx, msg)
}
