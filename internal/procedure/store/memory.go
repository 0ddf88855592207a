package store

import (
	"context"
	"sync"

	"correspondence/internal/procedure/models"
	id "correspondence/pkg/domain"
	"correspondence/pkg/platform/sentinel"
	"correspondence/pkg/platform/tx"
)

type sequenceKey struct {
	prefix      string
	institution id.InstitutionID
	year        int
}

type codeKey struct {
	code  string
	group models.Group
}

// InMemory stores procedures in a map. Writes register undo closures so a
// failed tx.Memory unit of work leaves no trace.
type InMemory struct {
	mu         sync.RWMutex
	procedures map[id.ProcedureID]models.Procedure
	codes      map[codeKey]id.ProcedureID
	sequences  map[sequenceKey]int
}

func NewInMemory() *InMemory {
	return &InMemory{
		procedures: make(map[id.ProcedureID]models.Procedure),
		codes:      make(map[codeKey]id.ProcedureID),
		sequences:  make(map[sequenceKey]int),
	}
}

func (s *InMemory) Create(ctx context.Context, p *models.Procedure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := codeKey{code: p.Code, group: p.Group}
	if _, taken := s.codes[key]; taken {
		return sentinel.ErrAlreadyUsed
	}
	s.procedures[p.ID] = clone(*p)
	s.codes[key] = p.ID
	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.procedures, p.ID)
		delete(s.codes, key)
	})
	return nil
}

func (s *InMemory) FindByID(_ context.Context, procedureID id.ProcedureID) (*models.Procedure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.procedures[procedureID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := clone(p)
	return &out, nil
}

// FindByIDForUpdate is FindByID; tx.Memory already serialises transactions.
func (s *InMemory) FindByIDForUpdate(ctx context.Context, procedureID id.ProcedureID) (*models.Procedure, error) {
	return s.FindByID(ctx, procedureID)
}

func (s *InMemory) UpdateState(ctx context.Context, procedureID id.ProcedureID, patch models.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.procedures[procedureID]
	if !ok {
		return sentinel.ErrNotFound
	}
	s.replace(ctx, p, func(next *models.Procedure) { patch.Apply(next) })
	return nil
}

func (s *InMemory) Update(ctx context.Context, p *models.Procedure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.procedures[p.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	s.replace(ctx, prev, func(next *models.Procedure) {
		next.Reference = p.Reference
		next.NumberOfDocuments = p.NumberOfDocuments
		next.Detail = p.Detail
		next.UpdatedAt = p.UpdatedAt
	})
	return nil
}

// replace applies mutate to a copy of prev and records the inverse. Caller
// holds s.mu.
func (s *InMemory) replace(ctx context.Context, prev models.Procedure, mutate func(*models.Procedure)) {
	next := clone(prev)
	mutate(&next)
	s.procedures[prev.ID] = next
	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.procedures[prev.ID] = prev
	})
}

func (s *InMemory) NextCorrelative(ctx context.Context, prefix string, institutionID id.InstitutionID, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sequenceKey{prefix: prefix, institution: institutionID, year: year}
	s.sequences[key]++
	next := s.sequences[key]
	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.sequences[key]--
	})
	return next, nil
}

func clone(p models.Procedure) models.Procedure {
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		p.CompletedAt = &t
	}
	if p.Detail.External != nil {
		ext := *p.Detail.External
		if ext.Representative != nil {
			rep := *ext.Representative
			ext.Representative = &rep
		}
		p.Detail.External = &ext
	}
	if p.Detail.Internal != nil {
		in := *p.Detail.Internal
		p.Detail.Internal = &in
	}
	return p
}
