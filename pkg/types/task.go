// Package types defines core interfaces and types for the scheduler
package types

import (
	"context"
	"fmt"
	"sync/atomic"
)

// taskIDCounter is the global task ID counter
var taskIDCounter int64

// Task defines the unit of work executed by a worker
type Task interface {
	// Execute executes the task
	Execute(ctx context.Context) error

	// ID returns the task ID (optional, for tracking)
	ID() string
}

// FuncTask is the basic implementation of Task interface
type FuncTask struct {
	id string
	fn func(ctx context.Context) error
}

// NewFuncTask creates a new function task
func NewFuncTask(fn func(ctx context.Context) error) *FuncTask {
	id := atomic.AddInt64(&taskIDCounter, 1)
	return &FuncTask{
		id: fmt.Sprintf("task-%d", id),
		fn: fn,
	}
}

// NewFuncTaskWithID creates a function task with custom ID
func NewFuncTaskWithID(id string, fn func(ctx context.Context) error) *FuncTask {
	return &FuncTask{
		id: id,
		fn: fn,
	}
}

// Execute executes the task
func (t *FuncTask) Execute(ctx context.Context) error {
	if t.fn == nil {
		return fmt.Errorf("task %s has no execution function", t.id)
	}
	return t.fn(ctx)
}

// ID returns the task ID
func (t *FuncTask) ID() string {
	return t.id
}

// sentinelTask is the distinguished end-of-work task. It is never
// executed and never stolen; a worker that retrieves it stops
// looking for more work.
type sentinelTask struct{}

func (sentinelTask) Execute(ctx context.Context) error { return nil }

func (sentinelTask) ID() string { return "sentinel" }

var sentinel Task = sentinelTask{}

// Sentinel returns the end-of-work task. All retrieval paths
// recognize it: the owning worker stops on it, stealers refuse it.
func Sentinel() Task {
	return sentinel
}

// IsSentinel reports whether t is the end-of-work task
func IsSentinel(t Task) bool {
	_, ok := t.(sentinelTask)
	return ok
}

// Priority selects the queue lane a task is admitted into
type Priority int

const (
	// PriorityDefault admits into the normal lane
	PriorityDefault Priority = iota
	// PriorityLow admits into the low lane
	PriorityLow
)

// String returns the string representation of Priority
func (p Priority) String() string {
	switch p {
	case PriorityDefault:
		return "default"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}
