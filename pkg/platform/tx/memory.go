package tx

import (
	"context"
	"sync"
	"time"

	dErrors "correspondence/pkg/domain-errors"
)

// Memory is the in-memory unit of work used by the memory stores and by
// service tests. One transaction runs at a time. Stores record a compensating
// closure for every mutation through RecordUndo; when fn fails (or panics)
// the closures run in reverse order so none of its writes remain visible.
type Memory struct {
	mu      sync.Mutex
	timeout time.Duration
}

// NewMemory creates an in-memory transaction manager.
func NewMemory() *Memory {
	return &Memory{timeout: defaultTxTimeout}
}

type journalKey struct{}

type journal struct {
	undo []func()
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

func (t *Memory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	j := &journal{}
	defer func() {
		if r := recover(); r != nil {
			j.rollback()
			panic(r)
		}
		if err != nil {
			j.rollback()
		}
	}()

	return fn(context.WithValue(ctx, journalKey{}, j))
}

// RecordUndo registers a compensating action for a write made inside a
// Memory transaction. Outside a Memory transaction it does nothing.
func RecordUndo(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}
