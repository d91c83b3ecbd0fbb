package sched

import (
	"context"

	"github.com/jzx17/goscheduler/pkg/queue"
	"github.com/jzx17/goscheduler/pkg/types"
)

// SchedulerConfig contains scheduler construction parameters. The
// sizing fields are accepted so callers can hand over their pool
// configuration unchanged; per-queue behavior does not depend on
// pool-wide sizing.
type SchedulerConfig struct {
	// Workers is the size of the owning pool
	Workers int

	// SpinCount is a reserved tuning knob for the steal wait.
	// Currently unused: steals block on a condition wait.
	SpinCount int
}

// Scheduler is the policy layer over one BiasedQueue: it decides
// which lane a task enters and distinguishes owner-side retrieval
// from stealing. Each worker addresses its own Scheduler instance.
type Scheduler struct {
	queue *queue.BiasedQueue
}

// NewScheduler creates a scheduler over a fresh queue
func NewScheduler(config *SchedulerConfig) *Scheduler {
	_ = config
	return &Scheduler{queue: queue.NewBiasedQueue()}
}

// Schedule admits task into the lane selected by prio. The side
// effect is visible to subsequent Next and Steal calls immediately.
// The task may be the end-of-work sentinel.
func (s *Scheduler) Schedule(task types.Task, prio types.Priority) {
	lane := queue.LaneNormal
	if prio == types.PriorityLow {
		lane = queue.LaneLow
	}
	s.queue.Push(task, lane)
}

// Next is owner-side retrieval: non-blocking, normal lane before low,
// ErrQueueEmpty as the empty marker.
func (s *Scheduler) Next() (types.Task, error) {
	return s.queue.PopOwned()
}

// Steal is foreign retrieval: blocks until the queue is observed
// non-empty, never returns the sentinel. ErrNothingToSteal is
// legitimate absence of stealable work, not a failure.
func (s *Scheduler) Steal(ctx context.Context) (types.Task, error) {
	return s.queue.Steal(ctx)
}

// TrySteal is the non-blocking steal used when sweeping peers
func (s *Scheduler) TrySteal() (types.Task, error) {
	return s.queue.TrySteal()
}

// Queue exposes the underlying queue, for observability
func (s *Scheduler) Queue() *queue.BiasedQueue {
	return s.queue
}
