package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"correspondence/internal/directory/models"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
	"correspondence/pkg/platform/sentinel"
	"correspondence/pkg/requestcontext"
)

type Store interface {
	CreateInstitution(ctx context.Context, inst *models.Institution) error
	CreateDependency(ctx context.Context, dep *models.Dependency) error
	CreateAccount(ctx context.Context, acc *models.Account) error
	FindAccount(ctx context.Context, accountID id.AccountID) (*models.Account, error)
	FindInstitution(ctx context.Context, institutionID id.InstitutionID) (*models.Institution, error)
	FindDependencies(ctx context.Context, ids []id.DependencyID) ([]models.Dependency, error)
	FindInstitutions(ctx context.Context, ids []id.InstitutionID) ([]models.Institution, error)
}

// resolveConcurrency bounds parallel account lookups in ResolveMany.
const resolveConcurrency = 8

// Service resolves organisational identities for routing.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the active account with its dependency and institution.
// Inactive accounts are reported as not found.
func (s *Service) Resolve(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	acc, err := s.store.FindAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	if !acc.Active {
		return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
	}
	return acc, nil
}

// ResolveMany resolves accounts in parallel, preserving the input order.
// The first failure cancels the remaining lookups.
func (s *Service) ResolveMany(ctx context.Context, ids []id.AccountID) ([]*models.Account, error) {
	out := make([]*models.Account, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for i, accountID := range ids {
		g.Go(func() error {
			acc, err := s.Resolve(gctx, accountID)
			if err != nil {
				return &ResolveError{AccountID: accountID, Err: err}
			}
			out[i] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveError identifies which account failed in ResolveMany.
type ResolveError struct {
	AccountID id.AccountID
	Err       error
}

func (e *ResolveError) Error() string {
	return "resolve account " + e.AccountID.String() + ": " + e.Err.Error()
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Exists reports whether an active account exists. It backs the request
// authentication middleware.
func (s *Service) Exists(ctx context.Context, accountID id.AccountID) (bool, error) {
	_, err := s.Resolve(ctx, accountID)
	if err == nil {
		return true, nil
	}
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return false, nil
	}
	return false, err
}

// Institution returns one institution.
func (s *Service) Institution(ctx context.Context, institutionID id.InstitutionID) (*models.Institution, error) {
	inst, err := s.store.FindInstitution(ctx, institutionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "institution not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load institution")
	}
	return inst, nil
}

// DependencyNames maps dependency ids to display names. Unknown ids are omitted.
func (s *Service) DependencyNames(ctx context.Context, ids []id.DependencyID) (map[id.DependencyID]string, error) {
	deps, err := s.store.FindDependencies(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load dependencies")
	}
	names := make(map[id.DependencyID]string, len(deps))
	for _, d := range deps {
		names[d.ID] = d.Name
	}
	return names, nil
}

// InstitutionNames maps institution ids to display names. Unknown ids are omitted.
func (s *Service) InstitutionNames(ctx context.Context, ids []id.InstitutionID) (map[id.InstitutionID]string, error) {
	insts, err := s.store.FindInstitutions(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load institutions")
	}
	names := make(map[id.InstitutionID]string, len(insts))
	for _, i := range insts {
		names[i.ID] = i.Name
	}
	return names, nil
}

func (s *Service) CreateInstitution(ctx context.Context, name, acronym string) (*models.Institution, error) {
	inst, err := models.NewInstitution(name, acronym, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	if err := s.store.CreateInstitution(ctx, inst); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "institution acronym already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create institution")
	}
	return inst, nil
}

func (s *Service) CreateDependency(ctx context.Context, institutionID id.InstitutionID, name, acronym string) (*models.Dependency, error) {
	dep, err := models.NewDependency(institutionID, name, acronym, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	if err := s.store.CreateDependency(ctx, dep); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "institution does not exist")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create dependency")
	}
	return dep, nil
}

// CreateAccount opens an account for an officer at a dependency.
func (s *Service) CreateAccount(ctx context.Context, officer models.Officer, dependency *models.Dependency) (*models.Account, error) {
	acc, err := models.NewAccount(officer, dependency, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	if err := s.store.CreateAccount(ctx, acc); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, dErrors.New(dErrors.CodeBadRequest, "officer already has an account")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeBadRequest, "dependency does not exist")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}
	s.logger.InfoContext(ctx, "account created",
		"account_id", acc.ID,
		"officer_id", acc.Officer.ID,
		"dependency_id", acc.DependencyID,
	)
	return acc, nil
}

// Seed creates an institution, one dependency per name and one account per
// dependency. It backs the in-memory demo and the service tests.
func Seed(ctx context.Context, s *Service, institution, acronym string, dependencies map[string]models.Officer) (map[string]*models.Account, error) {
	ctx = requestcontext.WithTime(ctx, time.Now())
	inst, err := s.CreateInstitution(ctx, institution, acronym)
	if err != nil {
		return nil, err
	}
	accounts := make(map[string]*models.Account, len(dependencies))
	for name, officer := range dependencies {
		dep, err := s.CreateDependency(ctx, inst.ID, name, name)
		if err != nil {
			return nil, err
		}
		acc, err := s.CreateAccount(ctx, officer, dep)
		if err != nil {
			return nil, err
		}
		accounts[name] = acc
	}
	return accounts, nil
}
