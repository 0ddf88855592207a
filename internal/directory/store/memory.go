package store

import (
	"context"
	"sync"

	"correspondence/internal/directory/models"
	id "correspondence/pkg/domain"
	"correspondence/pkg/platform/sentinel"
)

// InMemory keeps the directory in maps. Lookups return copies.
type InMemory struct {
	mu           sync.RWMutex
	institutions map[id.InstitutionID]models.Institution
	dependencies map[id.DependencyID]models.Dependency
	accounts     map[id.AccountID]models.Account
	officers     map[id.OfficerID]id.AccountID
}

func NewInMemory() *InMemory {
	return &InMemory{
		institutions: make(map[id.InstitutionID]models.Institution),
		dependencies: make(map[id.DependencyID]models.Dependency),
		accounts:     make(map[id.AccountID]models.Account),
		officers:     make(map[id.OfficerID]id.AccountID),
	}
}

func (s *InMemory) CreateInstitution(_ context.Context, inst *models.Institution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.institutions {
		if existing.Acronym == inst.Acronym {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.institutions[inst.ID] = *inst
	return nil
}

func (s *InMemory) CreateDependency(_ context.Context, dep *models.Dependency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.institutions[dep.InstitutionID]; !ok {
		return sentinel.ErrNotFound
	}
	s.dependencies[dep.ID] = *dep
	return nil
}

func (s *InMemory) CreateAccount(_ context.Context, acc *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.officers[acc.Officer.ID]; taken {
		return sentinel.ErrAlreadyUsed
	}
	if _, ok := s.dependencies[acc.DependencyID]; !ok {
		return sentinel.ErrNotFound
	}
	stored := *acc
	stored.Dependency, stored.Institution = nil, nil
	s.accounts[acc.ID] = stored
	s.officers[acc.Officer.ID] = acc.ID
	return nil
}

func (s *InMemory) FindAccount(_ context.Context, accountID id.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if dep, ok := s.dependencies[acc.DependencyID]; ok {
		acc.Dependency = &dep
	}
	if inst, ok := s.institutions[acc.InstitutionID]; ok {
		acc.Institution = &inst
	}
	return &acc, nil
}

func (s *InMemory) FindInstitution(_ context.Context, institutionID id.InstitutionID) (*models.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.institutions[institutionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &inst, nil
}

func (s *InMemory) FindDependencies(_ context.Context, ids []id.DependencyID) ([]models.Dependency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Dependency, 0, len(ids))
	for _, depID := range ids {
		if dep, ok := s.dependencies[depID]; ok {
			out = append(out, dep)
		}
	}
	return out, nil
}

func (s *InMemory) FindInstitutions(_ context.Context, ids []id.InstitutionID) ([]models.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Institution, 0, len(ids))
	for _, instID := range ids {
		if inst, ok := s.institutions[instID]; ok {
			out = append(out, inst)
		}
	}
	return out, nil
}

// SetActive toggles an account. Used by tests and seeding.
func (s *InMemory) SetActive(_ context.Context, accountID id.AccountID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return sentinel.ErrNotFound
	}
	acc.Active = active
	s.accounts[accountID] = acc
	return nil
}
