package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"correspondence/pkg/platform/outbox"
	"correspondence/pkg/platform/tx"
)

// Store keeps outbox events in append order.
type Store struct {
	mu     sync.Mutex
	events []outbox.Event
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(ctx context.Context, event outbox.Event) error {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()

	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.events {
			if s.events[i].ID == event.ID {
				s.events = append(s.events[:i], s.events[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (s *Store) FetchUnpublished(_ context.Context, limit int) ([]outbox.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []outbox.Event
	for _, e := range s.events {
		if e.PublishedAt != nil {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	for i := range s.events {
		if _, ok := wanted[s.events[i].ID]; ok {
			published := at
			s.events[i].PublishedAt = &published
		}
	}
	return nil
}

func (s *Store) PurgePublished(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var purged int64
	for _, e := range s.events {
		if e.PublishedAt != nil && e.PublishedAt.Before(before) {
			purged++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return purged, nil
}

// All returns a copy of every stored event. Used by tests.
func (s *Store) All() []outbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbox.Event(nil), s.events...)
}
