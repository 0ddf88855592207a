package store

import (
	"context"
	"sort"
	"sync"

	"correspondence/internal/communication/models"
	id "correspondence/pkg/domain"
	"correspondence/pkg/platform/sentinel"
	"correspondence/pkg/platform/tx"
)

type InMemory struct {
	mu    sync.RWMutex
	items map[id.CommunicationID]*models.Communication
	// seq orders rows by insertion, standing in for the serial order of
	// the Postgres table.
	seq   map[id.CommunicationID]int64
	clock int64
}

func NewInMemory() *InMemory {
	return &InMemory{
		items: make(map[id.CommunicationID]*models.Communication),
		seq:   make(map[id.CommunicationID]int64),
	}
}

func (s *InMemory) Insert(ctx context.Context, comms []*models.Communication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range comms {
		if c.Status.InFlight() && s.inFlightLocked(c.Procedure.ID, c.Recipient.AccountID, c.ID) != nil {
			return sentinel.ErrAlreadyUsed
		}
		for _, prev := range comms[:i] {
			if prev.Status.InFlight() && c.Status.InFlight() &&
				prev.Procedure.ID == c.Procedure.ID && prev.Recipient.AccountID == c.Recipient.AccountID {
				return sentinel.ErrAlreadyUsed
			}
		}
	}
	inserted := make([]id.CommunicationID, 0, len(comms))
	for _, c := range comms {
		s.clock++
		s.items[c.ID] = c.Clone()
		s.seq[c.ID] = s.clock
		inserted = append(inserted, c.ID)
	}
	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, commID := range inserted {
			delete(s.items, commID)
			delete(s.seq, commID)
		}
	})
	return nil
}

func (s *InMemory) FindByID(_ context.Context, commID id.CommunicationID) (*models.Communication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.items[commID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

// FindByIDForUpdate is FindByID; tx.Memory already serialises transactions.
func (s *InMemory) FindByIDForUpdate(ctx context.Context, commID id.CommunicationID) (*models.Communication, error) {
	return s.FindByID(ctx, commID)
}

func (s *InMemory) FindSelection(_ context.Context, ids []id.CommunicationID, party Party, accountID id.AccountID) ([]*models.Communication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[id.CommunicationID]bool, len(ids))
	var out []*models.Communication
	for _, commID := range ids {
		c, ok := s.items[commID]
		if !ok || seen[commID] || !party.matches(c, accountID) {
			continue
		}
		seen[commID] = true
		out = append(out, c.Clone())
	}
	return out, nil
}

func (s *InMemory) FindInFlight(_ context.Context, procedureID id.ProcedureID, recipients []id.AccountID) (*models.Communication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, accountID := range recipients {
		if c := s.inFlightLocked(procedureID, accountID, id.CommunicationID{}); c != nil {
			return c.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) inFlightLocked(procedureID id.ProcedureID, accountID id.AccountID, except id.CommunicationID) *models.Communication {
	for _, c := range s.items {
		if c.ID != except && c.Status.InFlight() && c.Procedure.ID == procedureID && c.Recipient.AccountID == accountID {
			return c
		}
	}
	return nil
}

// FindLatestStage returns the newest completed or received communication of
// the procedure addressed to accountID.
func (s *InMemory) FindLatestStage(_ context.Context, procedureID id.ProcedureID, accountID id.AccountID) (*models.Communication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Communication
	for _, c := range s.items {
		if c.Procedure.ID != procedureID || c.Recipient.AccountID != accountID {
			continue
		}
		if c.Status != models.StatusCompleted && c.Status != models.StatusReceived {
			continue
		}
		if latest == nil || s.seq[c.ID] > s.seq[latest.ID] {
			latest = c
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return latest.Clone(), nil
}

func (s *InMemory) UpdateStatus(ctx context.Context, ids []id.CommunicationID, update models.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := make([]*models.Communication, 0, len(ids))
	for _, commID := range ids {
		c, ok := s.items[commID]
		if !ok {
			return sentinel.ErrNotFound
		}
		if update.Status.InFlight() && !c.Status.InFlight() &&
			s.inFlightLocked(c.Procedure.ID, c.Recipient.AccountID, c.ID) != nil {
			return sentinel.ErrAlreadyUsed
		}
		prev = append(prev, c)
	}
	for _, c := range prev {
		next := c.Clone()
		update.Apply(next)
		s.items[c.ID] = next
	}
	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, c := range prev {
			s.items[c.ID] = c
		}
	})
	return nil
}

func (s *InMemory) Delete(ctx context.Context, ids []id.CommunicationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := make([]*models.Communication, 0, len(ids))
	seqs := make([]int64, 0, len(ids))
	for _, commID := range ids {
		if c, ok := s.items[commID]; ok {
			removed = append(removed, c)
			seqs = append(seqs, s.seq[commID])
			delete(s.items, commID)
			delete(s.seq, commID)
		}
	}
	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, c := range removed {
			s.items[c.ID] = c
			s.seq[c.ID] = seqs[i]
		}
	})
	return nil
}

// ListByProcedure returns the procedure's communications in send order.
func (s *InMemory) ListByProcedure(_ context.Context, procedureID id.ProcedureID) ([]*models.Communication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Communication
	for _, c := range s.items {
		if c.Procedure.ID == procedureID {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SentDate.Equal(out[j].SentDate) {
			return out[i].SentDate.Before(out[j].SentDate)
		}
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})
	return out, nil
}

func (s *InMemory) ListInbox(_ context.Context, accountID id.AccountID, f models.InboxFilter) (models.Page, error) {
	statuses := models.DefaultInboxStatuses
	if f.Status != "" {
		statuses = []models.Status{f.Status}
	}
	matches := s.filter(func(c *models.Communication) bool {
		return c.Recipient.AccountID == accountID &&
			hasStatus(c.Status, statuses) &&
			(f.Group == "" || c.Procedure.Group == f.Group)
	})
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Priority != matches[j].Priority {
			return matches[i].Priority > matches[j].Priority
		}
		return s.newer(matches[i], matches[j])
	})
	return paginate(matches, f.Limit, f.Offset), nil
}

func (s *InMemory) ListOutbox(_ context.Context, accountID id.AccountID, f models.OutboxFilter) (models.Page, error) {
	statuses := models.DefaultOutboxStatuses
	if f.Status != "" {
		statuses = []models.Status{f.Status}
	}
	matches := s.filter(func(c *models.Communication) bool {
		return c.Sender.AccountID == accountID && hasStatus(c.Status, statuses)
	})
	sort.Slice(matches, func(i, j int) bool { return s.newer(matches[i], matches[j]) })
	return paginate(matches, f.Limit, f.Offset), nil
}

func (s *InMemory) filter(keep func(*models.Communication) bool) []*models.Communication {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Communication
	for _, c := range s.items {
		if keep(c) {
			out = append(out, c.Clone())
		}
	}
	return out
}

func (s *InMemory) newer(a, b *models.Communication) bool {
	if !a.SentDate.Equal(b.SentDate) {
		return a.SentDate.After(b.SentDate)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq[a.ID] > s.seq[b.ID]
}

func hasStatus(st models.Status, in []models.Status) bool {
	for _, candidate := range in {
		if st == candidate {
			return true
		}
	}
	return false
}

func paginate(items []*models.Communication, limit, offset int) models.Page {
	page := models.Page{Total: len(items), Items: []*models.Communication{}}
	if offset >= len(items) {
		return page
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	page.Items = items
	return page
}
