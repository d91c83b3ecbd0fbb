// Package queue provides the biased dual-priority concurrent queue
package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jzx17/goscheduler/pkg/types"
)

// Lane identifies one of the two priority-ordered sub-queues
type Lane int

const (
	// LaneNormal is the default lane, always drained first
	LaneNormal Lane = iota
	// LaneLow is the low-priority lane
	LaneLow
)

// String returns the string representation of Lane
func (l Lane) String() string {
	switch l {
	case LaneNormal:
		return "normal"
	case LaneLow:
		return "low"
	default:
		return "unknown"
	}
}

// Stats contains queue statistics
type Stats struct {
	// Pushed is the total number of tasks pushed across both lanes
	Pushed int64

	// Popped is the total number of tasks removed by the owner
	Popped int64

	// Stolen is the total number of tasks removed by non-owners
	Stolen int64

	// NormalLen and LowLen are the current lane lengths
	NormalLen int
	LowLen    int
}

// BiasedQueue is a dual-lane FIFO queue shared between one habitual
// consumer (the worker that owns it) and any number of pushers and
// stealers.
//
// The owner's retrieval path is biased: when the queue is idle the
// owner answers from a lock-free emptiness check and never touches
// the mutex. All mutation happens under one mutex; the owner acquires
// it only when the atomic length says there may be work, which in the
// uncontended case is a single CAS rather than a kernel round trip.
// Stealing always pays for full synchronization including a blocking
// condition wait.
type BiasedQueue struct {
	mu       sync.Mutex
	nonEmpty *sync.Cond

	normal []types.Task
	low    []types.Task

	// size mirrors len(normal)+len(low) so the owner's empty check
	// needs no lock. The lock-protected paths are the source of truth.
	size atomic.Int64

	pushed atomic.Int64
	popped atomic.Int64
	stolen atomic.Int64
}

// NewBiasedQueue creates a new biased queue
func NewBiasedQueue() *BiasedQueue {
	q := &BiasedQueue{}
	q.nonEmpty = sync.NewCond(&q.mu)
	return q
}

// Push appends task to the given lane. Safe to call concurrently with
// pops and steals from any thread; never blocks.
func (q *BiasedQueue) Push(task types.Task, lane Lane) {
	q.mu.Lock()
	if lane == LaneLow {
		q.low = append(q.low, task)
	} else {
		q.normal = append(q.normal, task)
	}
	q.size.Add(1)
	q.pushed.Add(1)
	// Broadcast rather than Signal: a woken stealer may refuse a
	// sentinel head that the owner is waiting for.
	q.nonEmpty.Broadcast()
	q.mu.Unlock()
}

// PopOwned removes and returns the next task, preferring the normal
// lane. Called only by the owning worker. Returns ErrQueueEmpty as
// the empty marker; never blocks.
func (q *BiasedQueue) PopOwned() (types.Task, error) {
	// Fast path: the owner skips the mutex entirely when its queue
	// looks idle. A false negative here only delays retrieval by one
	// round; it can never lose a task.
	if q.size.Load() == 0 {
		return nil, types.ErrQueueEmpty
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.popLocked()
	if !ok {
		// Lost the race to a stealer between the atomic check and
		// the lock.
		return nil, types.ErrQueueEmpty
	}
	q.popped.Add(1)
	return task, nil
}

// Steal removes and returns the next task on behalf of a non-owner.
// It blocks until the queue is observed non-empty or ctx is done.
// If the head is the end-of-work sentinel it is left in place and
// ErrNothingToSteal is returned: sentinels are personal to the
// owning worker and never get stolen.
func (q *BiasedQueue) Steal(ctx context.Context) (types.Task, error) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.nonEmpty.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.normal)+len(q.low) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q.nonEmpty.Wait()
	}

	return q.stealLocked()
}

// TrySteal is the non-blocking variant of Steal, used when sweeping
// several peer queues. Returns ErrQueueEmpty immediately when there
// is nothing queued.
func (q *BiasedQueue) TrySteal() (types.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.normal)+len(q.low) == 0 {
		return nil, types.ErrQueueEmpty
	}
	return q.stealLocked()
}

// stealLocked re-peeks the head under the lock and pops it unless it
// is the sentinel. Callers must hold q.mu and have observed the queue
// non-empty.
func (q *BiasedQueue) stealLocked() (types.Task, error) {
	if types.IsSentinel(q.peekLocked()) {
		return nil, types.ErrNothingToSteal
	}
	task, _ := q.popLocked()
	q.stolen.Add(1)
	return task, nil
}

// Empty is a lock-free best-effort emptiness check. It may race
// benignly with concurrent pushes and pops.
func (q *BiasedQueue) Empty() bool {
	return q.size.Load() == 0
}

// Len returns the approximate total queue length
func (q *BiasedQueue) Len() int {
	return int(q.size.Load())
}

// Stats returns queue statistics
func (q *BiasedQueue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Pushed:    q.pushed.Load(),
		Popped:    q.popped.Load(),
		Stolen:    q.stolen.Load(),
		NormalLen: len(q.normal),
		LowLen:    len(q.low),
	}
}

// peekLocked returns the task the next pop would remove. Callers must
// hold q.mu and the queue must be non-empty.
func (q *BiasedQueue) peekLocked() types.Task {
	if len(q.normal) > 0 {
		return q.normal[0]
	}
	return q.low[0]
}

// popLocked removes the head task, normal lane first. Callers must
// hold q.mu.
func (q *BiasedQueue) popLocked() (types.Task, bool) {
	if len(q.normal) > 0 {
		task := q.normal[0]
		q.normal[0] = nil
		q.normal = q.normal[1:]
		q.size.Add(-1)
		return task, true
	}
	if len(q.low) > 0 {
		task := q.low[0]
		q.low[0] = nil
		q.low = q.low[1:]
		q.size.Add(-1)
		return task, true
	}
	return nil, false
}
