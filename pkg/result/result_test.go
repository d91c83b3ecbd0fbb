package result

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/goscheduler/pkg/types"
)

// TestTransportRoundTrip tests that a wrapped error re-materializes
// only at unwrap time, equal in kind and payload
func TestTransportRoundTrip(t *testing.T) {
	t.Run("ErrorSurfacesAtUnwrap", func(t *testing.T) {
		cause := errors.New("division by zero")
		wrapped := Wrap(cause)

		// Construction does not surface anything
		require.NotNil(t, wrapped)
		assert.Equal(t, cause, wrapped.Err())

		v, err := Unwrap(wrapped)
		assert.Nil(t, v)
		assert.Equal(t, cause, err)
	})

	t.Run("OrdinaryValueIsIdentity", func(t *testing.T) {
		v, err := Unwrap(42)
		require.NoError(t, err)
		assert.Equal(t, 42, v)

		v, err = Unwrap("hello")
		require.NoError(t, err)
		assert.Equal(t, "hello", v)

		v, err = Unwrap(nil)
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("PlainErrorValueIsNotTransported", func(t *testing.T) {
		// An error value that was never wrapped flows through as data
		cause := errors.New("just a value")
		v, err := Unwrap(cause)
		require.NoError(t, err)
		assert.Equal(t, cause, v)
	})

	t.Run("KindSurvivesTransport", func(t *testing.T) {
		wrapped := Wrap(types.NewKilledError("task-1"))

		_, err := Unwrap(wrapped)
		assert.True(t, errors.Is(err, types.ErrTaskKilled))

		var killed *types.KilledError
		require.True(t, errors.As(err, &killed))
		assert.Equal(t, "task-1", killed.TaskID)
	})
}

// TestWrap tests container construction
func TestWrap(t *testing.T) {
	t.Run("WrapIsIdempotent", func(t *testing.T) {
		cause := errors.New("boom")
		once := Wrap(cause)
		twice := Wrap(once)
		assert.Same(t, once, twice)
	})

	t.Run("WrapfConstructsFreshError", func(t *testing.T) {
		wrapped := Wrapf("stage %d failed: %w", 3, types.ErrTaskKilled)
		assert.True(t, errors.Is(wrapped, types.ErrTaskKilled))
		assert.Contains(t, wrapped.Err().Error(), "stage 3")
	})

	t.Run("ContainerSeesThroughForIs", func(t *testing.T) {
		wrapped := Wrap(types.ErrTaskKilled)
		assert.True(t, errors.Is(wrapped, types.ErrTaskKilled))
	})
}
