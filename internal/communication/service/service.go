// Package service implements the communication state machine: the router
// (initiate, forward, resend, cancel) and the inbox processor (accept,
// reject, archive). Every multi-row change runs inside one tx.Manager unit
// of work.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"correspondence/internal/communication/metrics"
	"correspondence/internal/communication/models"
	"correspondence/internal/communication/store"
	dirModels "correspondence/internal/directory/models"
	procModels "correspondence/internal/procedure/models"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
	"correspondence/pkg/platform/tx"
)

type Store interface {
	Insert(ctx context.Context, comms []*models.Communication) error
	FindByID(ctx context.Context, commID id.CommunicationID) (*models.Communication, error)
	FindByIDForUpdate(ctx context.Context, commID id.CommunicationID) (*models.Communication, error)
	FindSelection(ctx context.Context, ids []id.CommunicationID, party store.Party, accountID id.AccountID) ([]*models.Communication, error)
	FindInFlight(ctx context.Context, procedureID id.ProcedureID, recipients []id.AccountID) (*models.Communication, error)
	FindLatestStage(ctx context.Context, procedureID id.ProcedureID, accountID id.AccountID) (*models.Communication, error)
	UpdateStatus(ctx context.Context, ids []id.CommunicationID, update models.StatusUpdate) error
	Delete(ctx context.Context, ids []id.CommunicationID) error
	ListByProcedure(ctx context.Context, procedureID id.ProcedureID) ([]*models.Communication, error)
	ListInbox(ctx context.Context, accountID id.AccountID, f models.InboxFilter) (models.Page, error)
	ListOutbox(ctx context.Context, accountID id.AccountID, f models.OutboxFilter) (models.Page, error)
}

// Procedures is the slice of the procedure registry the state machine uses.
type Procedures interface {
	Get(ctx context.Context, procedureID id.ProcedureID) (*procModels.Procedure, error)
	Lock(ctx context.Context, procedureID id.ProcedureID) (*procModels.Procedure, error)
	UpdateState(ctx context.Context, procedureID id.ProcedureID, patch procModels.Patch) error
}

// Directory resolves senders and recipients.
type Directory interface {
	Resolve(ctx context.Context, accountID id.AccountID) (*dirModels.Account, error)
	ResolveMany(ctx context.Context, ids []id.AccountID) ([]*dirModels.Account, error)
	DependencyNames(ctx context.Context, ids []id.DependencyID) (map[id.DependencyID]string, error)
	InstitutionNames(ctx context.Context, ids []id.InstitutionID) (map[id.InstitutionID]string, error)
}

// DefaultAutoRejectDays is the number of business days a pending
// communication waits before it becomes eligible for auto-rejection.
const DefaultAutoRejectDays = 5

type base struct {
	store          Store
	procedures     Procedures
	directory      Directory
	tx             tx.Manager
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	autoRejectDays int
}

type Option func(*base)

func WithLogger(logger *slog.Logger) Option {
	return func(b *base) {
		b.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *base) {
		b.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(b *base) {
		b.tracer = t
	}
}

// WithAutoRejectDays sets the business-day window used by RemainingTime.
func WithAutoRejectDays(days int) Option {
	return func(b *base) {
		if days > 0 {
			b.autoRejectDays = days
		}
	}
}

func newBase(store Store, procedures Procedures, directory Directory, txManager tx.Manager, opts []Option) base {
	b := base{
		store:          store,
		procedures:     procedures,
		directory:      directory,
		tx:             txManager,
		logger:         slog.Default(),
		tracer:         otel.Tracer("correspondence/internal/communication"),
		autoRejectDays: DefaultAutoRejectDays,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// start opens a span for one operation. The returned func ends it and
// records the outcome metric.
func (b *base) start(ctx context.Context, operation string, kv ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := b.tracer.Start(ctx, "communication."+operation, trace.WithAttributes(kv...))
	began := time.Now()
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			outcome = string(dErrors.CodeInternal)
			if de, ok := dErrors.As(err); ok {
				outcome = string(de.Code)
			}
		}
		b.metrics.ObserveOperation(operation, outcome, time.Since(began))
		span.End()
	}
}

func wrapInternal(err error, msg string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
