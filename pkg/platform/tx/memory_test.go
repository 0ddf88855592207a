package tx

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "correspondence/pkg/domain-errors"
)

// counterStore mimics a memory store: every write registers its inverse.
type counterStore struct {
	mu    sync.Mutex
	value int
}

func (s *counterStore) add(ctx context.Context, n int) {
	s.mu.Lock()
	s.value += n
	s.mu.Unlock()
	RecordUndo(ctx, func() {
		s.mu.Lock()
		s.value -= n
		s.mu.Unlock()
	})
}

func (s *counterStore) get() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

func TestMemoryCommitKeepsWrites(t *testing.T) {
	m := NewMemory()
	store := &counterStore{}

	err := m.RunInTx(context.Background(), func(ctx context.Context) error {
		store.add(ctx, 2)
		store.add(ctx, 3)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 5, store.get())
}

func TestMemoryRollbackUndoesEveryWrite(t *testing.T) {
	m := NewMemory()
	store := &counterStore{value: 10}
	boom := errors.New("boom")

	err := m.RunInTx(context.Background(), func(ctx context.Context) error {
		store.add(ctx, 1)
		store.add(ctx, 4)
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 10, store.get())
}

func TestMemoryNestedJoinsOuter(t *testing.T) {
	m := NewMemory()
	store := &counterStore{}
	boom := errors.New("boom")

	err := m.RunInTx(context.Background(), func(ctx context.Context) error {
		store.add(ctx, 1)
		if err := m.RunInTx(ctx, func(ctx context.Context) error {
			store.add(ctx, 1)
			return nil
		}); err != nil {
			return err
		}
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.get(), "inner writes roll back with the outer transaction")
}

func TestMemoryPanicRollsBack(t *testing.T) {
	m := NewMemory()
	store := &counterStore{}

	assert.Panics(t, func() {
		_ = m.RunInTx(context.Background(), func(ctx context.Context) error {
			store.add(ctx, 7)
			panic("unexpected")
		})
	})
	assert.Equal(t, 0, store.get())
}

func TestMemoryCancelledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.RunInTx(ctx, func(context.Context) error {
		t.Fatal("fn must not run")
		return nil
	})

	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}

func TestRecordUndoOutsideTransactionIsNoop(t *testing.T) {
	store := &counterStore{}
	store.add(context.Background(), 3)
	assert.Equal(t, 3, store.get())
}
