// Package sched provides the central scheduler, the worker pool, and
// the per-task execution barrier
package sched

import (
	"errors"

	"github.com/jzx17/goscheduler/pkg/result"
	"github.com/jzx17/goscheduler/pkg/types"
)

// OutcomeState defines the terminal state of one task execution
type OutcomeState int32

const (
	// OutcomeCompleted means the task body returned normally
	OutcomeCompleted OutcomeState = iota
	// OutcomeTransferred means a failure was transferred out of the
	// task as a transportable value
	OutcomeTransferred
	// OutcomeKilled means the task observed a kill signal
	OutcomeKilled
)

// String returns the string representation of OutcomeState
func (s OutcomeState) String() string {
	switch s {
	case OutcomeCompleted:
		return "completed"
	case OutcomeTransferred:
		return "transferred"
	case OutcomeKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// Outcome is the result of running one task under the execution
// barrier. Exactly one of Value and Err is meaningful: Err is set for
// Transferred and Killed outcomes.
type Outcome struct {
	State OutcomeState
	Value any
	Err   *result.WrappedError
}

// Completed builds a normal-return outcome
func Completed(v any) Outcome {
	return Outcome{State: OutcomeCompleted, Value: v}
}

// Transferred builds an outcome carrying a transported failure
func Transferred(we *result.WrappedError) Outcome {
	if errors.Is(we, types.ErrTaskKilled) {
		return Outcome{State: OutcomeKilled, Err: we}
	}
	return Outcome{State: OutcomeTransferred, Err: we}
}

// Unwrap surfaces the outcome on the consumer's goroutine: the value
// for a completed task, the transported error for a transferred or
// killed one.
func (o Outcome) Unwrap() (any, error) {
	if o.Err != nil {
		return result.Unwrap(o.Err)
	}
	return result.Unwrap(o.Value)
}
