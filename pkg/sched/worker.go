package sched

import (
	"sync/atomic"
)

// WorkerState defines the state of a Worker
type WorkerState int32

const (
	// WorkerStateIdle represents idle worker state
	WorkerStateIdle WorkerState = iota
	// WorkerStateWorking represents working worker state
	WorkerStateWorking
	// WorkerStateStopped represents stopped worker state
	WorkerStateStopped
)

// String returns the string representation of WorkerState
func (ws WorkerState) String() string {
	switch ws {
	case WorkerStateIdle:
		return "idle"
	case WorkerStateWorking:
		return "working"
	case WorkerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Worker is one pool worker. Each worker owns a Scheduler (and its
// queue); peers reach that queue only through stealing.
type Worker struct {
	id    int
	state int32 // atomic WorkerState
	sched *Scheduler

	totalProcessed int64
	totalFailed    int64
}

func newWorker(id int, sched *Scheduler) *Worker {
	return &Worker{
		id:    id,
		state: int32(WorkerStateIdle),
		sched: sched,
	}
}

// ID returns the worker ID
func (w *Worker) ID() int {
	return w.id
}

// State returns the current worker state
func (w *Worker) State() WorkerState {
	return WorkerState(atomic.LoadInt32(&w.state))
}

func (w *Worker) setState(state WorkerState) {
	atomic.StoreInt32(&w.state, int32(state))
}

// Scheduler returns the scheduler this worker owns
func (w *Worker) Scheduler() *Scheduler {
	return w.sched
}

// TotalProcessed returns the number of tasks this worker executed
func (w *Worker) TotalProcessed() int64 {
	return atomic.LoadInt64(&w.totalProcessed)
}

// TotalFailed returns the number of executions that did not complete
// normally
func (w *Worker) TotalFailed() int64 {
	return atomic.LoadInt64(&w.totalFailed)
}
