package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"correspondence/internal/notification/metrics"
	"correspondence/internal/notification/models"
	procModels "correspondence/internal/procedure/models"
	"correspondence/pkg/attrs"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
	"correspondence/pkg/requestcontext"
)

type Procedures interface {
	Get(ctx context.Context, procedureID id.ProcedureID) (*procModels.Procedure, error)
}

// Ledger records which procedures were notified. Claim takes the right to
// notify a procedure; Confirm makes it permanent and Release gives it back.
type Ledger interface {
	Claim(ctx context.Context, procedureID id.ProcedureID, now time.Time) (bool, error)
	Confirm(ctx context.Context, procedureID id.ProcedureID, messageID string, now time.Time) error
	Release(ctx context.Context, procedureID id.ProcedureID) error
}

type Notifier interface {
	Send(ctx context.Context, phone, text string) (models.Result, error)
	Status(ctx context.Context, messageID string) (string, error)
}

// Service notifies applicants when their procedures complete. It runs after
// the completing transaction committed and never reports failure upstream
// as anything but an outcome.
type Service struct {
	procedures Procedures
	ledger     Ledger
	notifier   Notifier
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(procedures Procedures, ledger Ledger, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		procedures: procedures,
		ledger:     ledger,
		notifier:   notifier,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NotifyCompleted sends the completion message of a procedure at most once.
func (s *Service) NotifyCompleted(ctx context.Context, procedureID id.ProcedureID) models.Outcome {
	outcome := s.notifyCompleted(ctx, procedureID)
	s.metrics.IncOutcome(string(outcome))
	return outcome
}

func (s *Service) notifyCompleted(ctx context.Context, procedureID id.ProcedureID) models.Outcome {
	log := s.logger.With(attrs.ProcedureID, procedureID.String())

	p, err := s.procedures.Get(ctx, procedureID)
	if err != nil {
		log.ErrorContext(ctx, "notification skipped, procedure not loaded", attrs.Error, err.Error())
		return models.OutcomeFailed
	}
	log = log.With(attrs.ProcedureCode, p.Code)
	if ok, reason := models.Eligible(p); !ok {
		log.InfoContext(ctx, "procedure not eligible for notification", "reason", reason)
		return models.OutcomeIneligible
	}

	claimed, err := s.ledger.Claim(ctx, procedureID, s.now())
	if err != nil {
		log.ErrorContext(ctx, "notification ledger unavailable", attrs.Error, err.Error())
		return models.OutcomeFailed
	}
	if !claimed {
		log.InfoContext(ctx, "procedure already notified")
		return models.OutcomeDuplicate
	}

	start := s.now()
	res, err := s.notifier.Send(ctx, models.Phone(p), models.CompletionText(p))
	s.metrics.ObserveSend(s.now().Sub(start))
	if err == nil && !res.Success {
		err = errors.New(res.Error)
	}
	if err != nil {
		log.ErrorContext(ctx, "completion notification failed", attrs.Error, err.Error())
		if relErr := s.ledger.Release(ctx, procedureID); relErr != nil {
			log.ErrorContext(ctx, "failed to release notification claim", attrs.Error, relErr.Error())
		}
		return models.OutcomeFailed
	}

	if err := s.ledger.Confirm(ctx, procedureID, res.MessageID, s.now()); err != nil {
		log.ErrorContext(ctx, "notification sent but not recorded", attrs.Error, err.Error(), "message_id", res.MessageID)
	}
	log.InfoContext(ctx, "completion notification sent", "message_id", res.MessageID)
	return models.OutcomeSent
}

// SendObservation sends an observation to the applicants of each procedure.
// Every id gets a result; one failure does not stop the others.
func (s *Service) SendObservation(ctx context.Context, rawIDs []string, observation string) ([]models.ObservationResult, error) {
	observation = strings.TrimSpace(observation)
	if observation == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "observation is required")
	}
	results := make([]models.ObservationResult, 0, len(rawIDs))
	for _, raw := range rawIDs {
		results = append(results, s.sendObservation(ctx, raw, observation))
	}
	s.logger.InfoContext(ctx, "observations sent",
		attrs.RequestID, requestcontext.RequestID(ctx),
		"procedures", len(rawIDs),
	)
	return results, nil
}

func (s *Service) sendObservation(ctx context.Context, raw, observation string) models.ObservationResult {
	result := models.ObservationResult{ID: raw}
	procedureID, err := id.ParseProcedureID(raw)
	if err != nil {
		result.Message = "invalid id"
		return result
	}
	p, err := s.procedures.Get(ctx, procedureID)
	if err != nil {
		result.Message = "procedure does not exist"
		return result
	}
	phone := models.Phone(p)
	if phone == "" {
		result.Message = "invalid phone"
		return result
	}
	res, err := s.notifier.Send(ctx, phone, models.ObservationText(p, observation))
	if err != nil || !res.Success {
		s.logger.WarnContext(ctx, "observation not sent", attrs.ProcedureID, raw, "error", errString(err, res))
		result.Message = "failed to send observation"
		return result
	}
	result.Success = true
	result.Message = "observation sent"
	return result
}

func errString(err error, res models.Result) string {
	if err != nil {
		return err.Error()
	}
	return res.Error
}

// MessageStatus reports the gateway's delivery status for a message.
func (s *Service) MessageStatus(ctx context.Context, messageID string) (string, error) {
	if strings.TrimSpace(messageID) == "" {
		return "", dErrors.New(dErrors.CodeValidation, "message id is required")
	}
	status, err := s.notifier.Status(ctx, messageID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to query message status")
	}
	return status, nil
}
