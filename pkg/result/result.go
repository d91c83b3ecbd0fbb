// Package result provides the error transport container and the
// unwrap protocol that lets any value flow through a result channel
// uniformly, with failures re-materializing only when explicitly
// unwrapped on the consumer side.
package result

import "fmt"

// WrappedError is an immutable container holding exactly one error
// that crossed from a worker goroutine to a result consumer. The
// held error stays inert until Unwrap surfaces it on the consumer's
// side.
type WrappedError struct {
	err error
}

// Wrap captures a caught error for transport. Wrapping a WrappedError
// returns it unchanged rather than nesting containers.
func Wrap(err error) *WrappedError {
	if we, ok := err.(*WrappedError); ok {
		return we
	}
	return &WrappedError{err: err}
}

// Wrapf captures a freshly constructed error for transport, used when
// the failure is described by a message rather than a live error.
func Wrapf(format string, args ...any) *WrappedError {
	return &WrappedError{err: fmt.Errorf(format, args...)}
}

// Err returns the held error without surfacing it
func (w *WrappedError) Err() error {
	return w.err
}

// Error implements the error interface
func (w *WrappedError) Error() string {
	return fmt.Sprintf("transported task error: %v", w.err)
}

// Unwrap returns the held error, so errors.Is and errors.As see
// through the container
func (w *WrappedError) Unwrap() error {
	return w.err
}

// Unwrap is polymorphic over ordinary values and transported
// failures. An ordinary value is returned unchanged. A *WrappedError
// surfaces its held error on the calling goroutine, exactly as if the
// failure had been raised synchronously in the caller's own call.
// This is the single place a transported failure becomes live again.
func Unwrap(v any) (any, error) {
	if we, ok := v.(*WrappedError); ok {
		return nil, we.Err()
	}
	return v, nil
}
