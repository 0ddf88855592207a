package store

import (
	"context"
	"sync"
	"time"

	id "correspondence/pkg/domain"
)

type entry struct {
	sent      bool
	messageID string
	updatedAt time.Time
}

// InMemory is the process-local ledger used when no database is configured.
type InMemory struct {
	mu         sync.Mutex
	staleAfter time.Duration
	entries    map[id.ProcedureID]entry
}

func NewInMemory(staleAfter time.Duration) *InMemory {
	return &InMemory{staleAfter: staleAfter, entries: make(map[id.ProcedureID]entry)}
}

func (s *InMemory) Claim(_ context.Context, procedureID id.ProcedureID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[procedureID]; ok {
		if e.sent || now.Sub(e.updatedAt) < s.staleAfter {
			return false, nil
		}
	}
	s.entries[procedureID] = entry{updatedAt: now}
	return true, nil
}

func (s *InMemory) Confirm(_ context.Context, procedureID id.ProcedureID, messageID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[procedureID] = entry{sent: true, messageID: messageID, updatedAt: now}
	return nil
}

func (s *InMemory) Release(_ context.Context, procedureID id.ProcedureID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[procedureID]; ok && !e.sent {
		delete(s.entries, procedureID)
	}
	return nil
}

// Sent reports whether a procedure was notified. Used by tests.
func (s *InMemory) Sent(procedureID id.ProcedureID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[procedureID].sent
}
