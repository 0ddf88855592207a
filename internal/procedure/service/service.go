package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"

	dirModels "correspondence/internal/directory/models"
	"correspondence/internal/procedure/models"
	"correspondence/pkg/attrs"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
	"correspondence/pkg/platform/sentinel"
	"correspondence/pkg/platform/tx"
	"correspondence/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, p *models.Procedure) error
	FindByID(ctx context.Context, procedureID id.ProcedureID) (*models.Procedure, error)
	FindByIDForUpdate(ctx context.Context, procedureID id.ProcedureID) (*models.Procedure, error)
	UpdateState(ctx context.Context, procedureID id.ProcedureID, patch models.Patch) error
	Update(ctx context.Context, p *models.Procedure) error
	NextCorrelative(ctx context.Context, prefix string, institutionID id.InstitutionID, year int) (int, error)
}

// Directory resolves the registering account and the names shown in
// procedure details.
type Directory interface {
	Resolve(ctx context.Context, accountID id.AccountID) (*dirModels.Account, error)
	DependencyNames(ctx context.Context, ids []id.DependencyID) (map[id.DependencyID]string, error)
	InstitutionNames(ctx context.Context, ids []id.InstitutionID) (map[id.InstitutionID]string, error)
}

// Service owns procedure registration, codes and lifecycle state.
type Service struct {
	store     Store
	directory Directory
	tx        tx.Manager
	providers map[models.Group]DetailProvider
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithDetailProvider overrides the detail provider for one group.
func WithDetailProvider(group models.Group, p DetailProvider) Option {
	return func(s *Service) {
		s.providers[group] = p
	}
}

func New(store Store, directory Directory, txManager tx.Manager, opts ...Option) *Service {
	s := &Service{
		store:     store,
		directory: directory,
		tx:        txManager,
		logger:    slog.Default(),
	}
	s.providers = map[models.Group]DetailProvider{
		models.GroupExternal: &ExternalDetailProvider{directory: directory},
		models.GroupInternal: &InternalDetailProvider{directory: directory},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterExternal is a citizen-filed procedure.
type RegisterExternal struct {
	Segment           string
	Reference         string
	NumberOfDocuments int
	Applicant         models.Applicant
	Representative    *models.Representative
	Requirements      string
	TypeProcedureID   string
}

// RegisterInternal is an office-to-office procedure issued by the actor.
type RegisterInternal struct {
	Reference         string
	NumberOfDocuments int
	Recipient         models.Worker
}

func (s *Service) RegisterExternal(ctx context.Context, actorID id.AccountID, in RegisterExternal) (*models.Procedure, error) {
	detail := models.Detail{
		Group: models.GroupExternal,
		External: &models.ExternalDetail{
			Applicant:       in.Applicant,
			Representative:  in.Representative,
			Requirements:    strings.TrimSpace(in.Requirements),
			Pin:             newPin(),
			TypeProcedureID: in.TypeProcedureID,
		},
	}
	return s.register(ctx, actorID, in.Segment, in.Reference, in.NumberOfDocuments, detail)
}

func (s *Service) RegisterInternal(ctx context.Context, actorID id.AccountID, in RegisterInternal) (*models.Procedure, error) {
	detail := models.Detail{
		Group:    models.GroupInternal,
		Internal: &models.InternalDetail{Recipient: in.Recipient},
	}
	return s.register(ctx, actorID, "", in.Reference, in.NumberOfDocuments, detail)
}

func (s *Service) register(ctx context.Context, actorID id.AccountID, segment, reference string, documents int, detail models.Detail) (*models.Procedure, error) {
	actor, err := s.directory.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if detail.Internal != nil {
		detail.Internal.Sender = models.Worker{FullName: actor.Officer.FullName, JobTitle: actor.Officer.JobTitle}
	}
	if err := detail.Validate(); err != nil {
		return nil, err
	}
	if documents < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "number of documents cannot be negative")
	}

	now := requestcontext.Now(ctx)
	officerID := actor.Officer.ID
	p := &models.Procedure{
		ID:                id.NewProcedureID(),
		Group:             detail.Group,
		State:             models.StateRegistered,
		Status:            models.StatusPending,
		AccountID:         actor.ID,
		InstitutionID:     actor.InstitutionID,
		DependencyID:      actor.DependencyID,
		OfficerID:         &officerID,
		Reference:         strings.TrimSpace(reference),
		NumberOfDocuments: documents,
		Detail:            detail,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		code, err := s.GenerateCode(ctx, actor, p.Group, segment, now.Year())
		if err != nil {
			return err
		}
		p.Code, p.Prefix, p.Correlative = code.Value, code.Prefix, code.Correlative
		if err := s.store.Create(ctx, p); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "procedure code already issued")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create procedure")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "procedure registered",
		attrs.RequestID, requestcontext.RequestID(ctx),
		attrs.ProcedureID, p.ID.String(),
		attrs.ProcedureCode, p.Code,
		attrs.AccountID, actor.ID.String(),
		"group", string(p.Group),
	)
	return p, nil
}

// GenerateCode issues the next code for the actor's institution. It must run
// inside the transaction that stores the procedure so an aborted
// registration does not consume a correlative.
func (s *Service) GenerateCode(ctx context.Context, actor *dirModels.Account, group models.Group, segment string, year int) (models.Code, error) {
	if actor.Institution == nil {
		return models.Code{}, dErrors.New(dErrors.CodeInternal, "account institution not loaded")
	}
	prefix, err := models.PrefixFor(group, segment)
	if err != nil {
		return models.Code{}, err
	}
	next, err := s.store.NextCorrelative(ctx, prefix, actor.InstitutionID, year)
	if err != nil {
		return models.Code{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate correlative")
	}
	return models.NewCode(group, prefix, actor.Institution.Acronym, year, next), nil
}

func (s *Service) Get(ctx context.Context, procedureID id.ProcedureID) (*models.Procedure, error) {
	p, err := s.store.FindByID(ctx, procedureID)
	if err != nil {
		return nil, translateFind(err)
	}
	return p, nil
}

// Lock loads the procedure with a row lock held until the surrounding
// transaction ends.
func (s *Service) Lock(ctx context.Context, procedureID id.ProcedureID) (*models.Procedure, error) {
	p, err := s.store.FindByIDForUpdate(ctx, procedureID)
	if err != nil {
		return nil, translateFind(err)
	}
	return p, nil
}

func (s *Service) UpdateState(ctx context.Context, procedureID id.ProcedureID, patch models.Patch) error {
	if err := s.store.UpdateState(ctx, procedureID, patch); err != nil {
		return translateFind(err)
	}
	return nil
}

// Update carries the editable registration fields. Nil fields are kept.
type Update struct {
	Reference         *string
	NumberOfDocuments *int
	Applicant         *models.Applicant
	Requirements      *string
	Recipient         *models.Worker
}

// Update edits a procedure that has not been sent yet. Only accounts of the
// owning dependency may edit it.
func (s *Service) Update(ctx context.Context, actorID id.AccountID, procedureID id.ProcedureID, in Update) (*models.Procedure, error) {
	actor, err := s.directory.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	var updated *models.Procedure
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.Lock(ctx, procedureID)
		if err != nil {
			return err
		}
		if p.DependencyID != actor.DependencyID {
			return dErrors.New(dErrors.CodeForbidden, "procedure belongs to another dependency")
		}
		if err := p.CanUpdate(); err != nil {
			return err
		}
		if err := applyUpdate(p, in); err != nil {
			return err
		}
		p.UpdatedAt = requestcontext.Now(ctx)
		if err := s.store.Update(ctx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update procedure")
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "procedure updated",
		attrs.RequestID, requestcontext.RequestID(ctx),
		attrs.ProcedureID, updated.ID.String(),
		attrs.AccountID, actorID.String(),
	)
	return updated, nil
}

func applyUpdate(p *models.Procedure, in Update) error {
	if in.Reference != nil {
		p.Reference = strings.TrimSpace(*in.Reference)
	}
	if in.NumberOfDocuments != nil {
		if *in.NumberOfDocuments < 0 {
			return dErrors.New(dErrors.CodeValidation, "number of documents cannot be negative")
		}
		p.NumberOfDocuments = *in.NumberOfDocuments
	}
	switch p.Group {
	case models.GroupExternal:
		if in.Recipient != nil {
			return dErrors.New(dErrors.CodeValidation, "external procedures have no internal recipient")
		}
		if in.Applicant != nil {
			p.Detail.External.Applicant = *in.Applicant
		}
		if in.Requirements != nil {
			p.Detail.External.Requirements = strings.TrimSpace(*in.Requirements)
		}
	case models.GroupInternal:
		if in.Applicant != nil || in.Requirements != nil {
			return dErrors.New(dErrors.CodeValidation, "internal procedures have no applicant")
		}
		if in.Recipient != nil {
			p.Detail.Internal.Recipient = *in.Recipient
		}
	}
	return p.Detail.Validate()
}

// GetDetail loads the procedure and renders its group-specific view.
func (s *Service) GetDetail(ctx context.Context, procedureID id.ProcedureID) (DetailView, error) {
	p, err := s.Get(ctx, procedureID)
	if err != nil {
		return nil, err
	}
	provider, ok := s.providers[p.Group]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, "no detail provider for group "+string(p.Group))
	}
	return provider.GetDetail(ctx, p)
}

func translateFind(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "procedure not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load procedure")
}

// newPin returns the 6-digit consultation pin handed to applicants.
func newPin() int {
	return 100000 + rand.IntN(900000)
}
