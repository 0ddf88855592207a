package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct error", func(t *testing.T) {
		err := New(CodeNotFound, "procedure not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("loading: %w", New(CodeForbidden, "not recipient"))
		assert.True(t, HasCode(err, CodeForbidden))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	})
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "failed to insert communications")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
	assert.True(t, Is(err, CodeInternal))
}

func TestBatchDetails(t *testing.T) {
	err := WithInvalidItems("invalid communications", []InvalidItem{{ID: "a", Status: "received", Code: "X-1"}})

	de, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, CodeUnprocessableEntity, de.Code)
	require.NotNil(t, de.Details)
	assert.Equal(t, "received", de.Details.InvalidItems[0].Status)
	assert.Empty(t, de.Details.NotFoundIDs)

	nf := WithNotFoundIDs("communications not found", []string{"b"})
	assert.Equal(t, []string{"b"}, nf.Details.NotFoundIDs)
	assert.True(t, HasCode(nf, CodeNotFound))
}
