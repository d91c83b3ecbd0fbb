package sched

import (
	"context"
	"sync"

	"github.com/jzx17/goscheduler/pkg/types"
)

// The kernel is the process-wide registered pool. Scheduling entry
// points that need one fail with ErrNoKernel until a pool is
// registered; that is a caller-configuration error, recoverable by
// starting a pool and retrying.
var (
	kernelMu   sync.RWMutex
	kernelPool *Pool
)

// SetKernel registers p as the current kernel
func SetKernel(p *Pool) {
	kernelMu.Lock()
	kernelPool = p
	kernelMu.Unlock()
}

// ResetKernel unregisters the current kernel
func ResetKernel() {
	SetKernel(nil)
}

// CurrentKernel returns the registered pool, or ErrNoKernel
func CurrentKernel() (*Pool, error) {
	kernelMu.RLock()
	defer kernelMu.RUnlock()
	if kernelPool == nil {
		return nil, types.ErrNoKernel
	}
	return kernelPool, nil
}

// Schedule admits work through the current kernel
func Schedule(task types.Task, prio types.Priority) error {
	k, err := CurrentKernel()
	if err != nil {
		return err
	}
	return k.Schedule(task, prio)
}

// Next retrieves the next task owned by workerID through the current
// kernel. Non-blocking; ErrQueueEmpty is the empty marker.
func Next(workerID int) (types.Task, error) {
	k, err := CurrentKernel()
	if err != nil {
		return nil, err
	}
	return k.Next(workerID)
}

// Steal steals from workerID's queue through the current kernel,
// blocking until stealable work is observed or ctx is done.
func Steal(ctx context.Context, workerID int) (types.Task, error) {
	k, err := CurrentKernel()
	if err != nil {
		return nil, err
	}
	return k.Steal(ctx, workerID)
}
