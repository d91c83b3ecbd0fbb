// Package types defines error types
package types

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrNoKernel indicates an operation that needs a running kernel
	// was invoked before one was registered
	ErrNoKernel = errors.New("no scheduler kernel is running: start a worker pool and register it first")

	// ErrTaskKilled indicates a task was terminated by cooperative cancellation
	ErrTaskKilled = errors.New("task killed")

	// ErrQueueEmpty is the empty marker returned by owner-side retrieval
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrNothingToSteal indicates a steal observed only the end-of-work
	// sentinel, which is personal to the owning worker
	ErrNothingToSteal = errors.New("nothing to steal")

	// ErrPoolNotStarted indicates the worker pool is not started
	ErrPoolNotStarted = errors.New("worker pool is not started")

	// ErrPoolClosed indicates the worker pool is closed
	ErrPoolClosed = errors.New("worker pool is closed")
)

// KilledError reports which task was killed. It matches ErrTaskKilled
// via errors.Is.
type KilledError struct {
	// TaskID is the ID of the killed task
	TaskID string
}

// Error implements the error interface
func (e *KilledError) Error() string {
	return fmt.Sprintf("task %s killed", e.TaskID)
}

// Is checks if the error is ErrTaskKilled
func (e *KilledError) Is(target error) bool {
	return target == ErrTaskKilled
}

// NewKilledError creates a new killed error for a task
func NewKilledError(taskID string) *KilledError {
	return &KilledError{TaskID: taskID}
}

// TaskError represents an error raised inside a task body
type TaskError struct {
	// TaskID is the ID of the task that failed
	TaskID string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s failed: %v", e.TaskID, e.Cause)
}

// Unwrap returns the underlying error
func (e *TaskError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is a specific error
func (e *TaskError) Is(target error) bool {
	return errors.Is(e.Cause, target)
}

// NewTaskError creates a new task error
func NewTaskError(taskID string, cause error) *TaskError {
	return &TaskError{TaskID: taskID, Cause: cause}
}
