// Package outbox implements the transactional outbox: domain services append
// events through the ambient transaction, and a Relay publishes committed
// events to the message broker afterwards. Consumers only ever see events
// whose originating transaction committed.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is one outbox row.
type Event struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// NewEvent builds an event with a JSON payload.
func NewEvent(aggregateType, aggregateID, eventType string, payload any, now time.Time) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       body,
		CreatedAt:     now,
	}, nil
}

// Store persists outbox events. Append joins the transaction carried by ctx.
type Store interface {
	Append(ctx context.Context, event Event) error
	FetchUnpublished(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
	PurgePublished(ctx context.Context, before time.Time) (int64, error)
}

// Publisher delivers a message to a broker topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// PublisherFunc adapts a function to Publisher. The in-memory deployment uses
// it to hand events straight to the local consumer.
type PublisherFunc func(ctx context.Context, topic string, key, value []byte, headers map[string]string) error

func (f PublisherFunc) Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	return f(ctx, topic, key, value, headers)
}

// Header names attached to every published message.
const (
	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
)
