package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"correspondence/pkg/platform/tx"
)

const defaultBatchSize = 100

// Relay moves committed outbox events to the broker.
type Relay struct {
	mu        sync.Mutex
	store     Store
	publisher Publisher
	txManager tx.Manager
	topic     string
	batchSize int
	logger    *slog.Logger
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithBatchSize caps the number of events published per Flush.
func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithRelayLogger sets the relay logger.
func WithRelayLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

// NewRelay creates a relay publishing to topic.
func NewRelay(store Store, publisher Publisher, txManager tx.Manager, topic string, opts ...RelayOption) *Relay {
	r := &Relay{
		store:     store,
		publisher: publisher,
		txManager: txManager,
		topic:     topic,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Flush publishes one batch of unpublished events in append order and marks
// the delivered ones as published. Publishing stops at the first broker
// failure so ordering per aggregate is kept; the remaining events are retried
// on the next flush. Delivery is at-least-once.
//
// The batch is read and marked in two short transactions; publishing runs
// outside both, so a slow publisher never holds a transaction open.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var events []Event
	err := r.txManager.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		events, err = r.store.FetchUnpublished(ctx, r.batchSize)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("fetch unpublished events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	delivered := make([]uuid.UUID, 0, len(events))
	var publishErr error
	for _, event := range events {
		headers := map[string]string{
			HeaderEventID:   event.ID.String(),
			HeaderEventType: event.EventType,
		}
		if err := r.publisher.Publish(ctx, r.topic, []byte(event.AggregateID), event.Payload, headers); err != nil {
			publishErr = err
			r.logger.WarnContext(ctx, "outbox publish failed",
				"event_id", event.ID,
				"event_type", event.EventType,
				"error", err,
			)
			break
		}
		delivered = append(delivered, event.ID)
	}

	if len(delivered) > 0 {
		err := r.txManager.RunInTx(ctx, func(ctx context.Context) error {
			return r.store.MarkPublished(ctx, delivered, time.Now())
		})
		if err != nil {
			return 0, fmt.Errorf("mark events published: %w", err)
		}
	}
	if publishErr != nil && len(delivered) == 0 {
		return 0, fmt.Errorf("publish outbox event: %w", publishErr)
	}
	return len(delivered), nil
}

// Purge deletes published events older than retention.
func (r *Relay) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := r.store.PurgePublished(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("purge outbox: %w", err)
	}
	if n > 0 {
		r.logger.InfoContext(ctx, "outbox purged", "deleted", n)
	}
	return n, nil
}
