package sched

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jzx17/goscheduler/pkg/debug"
	"github.com/jzx17/goscheduler/pkg/handlers"
	"github.com/jzx17/goscheduler/pkg/types"
)

// pool lifecycle states
const (
	poolStopped int32 = iota
	poolRunning
	poolClosed
)

// Config contains configuration for the worker pool
type Config struct {
	// Workers is the number of workers in the pool; each worker owns
	// one queue
	Workers int

	// SpinCount is a reserved tuning knob for the steal wait.
	// Accepted and currently ignored; steals block on a condition
	// wait.
	SpinCount int

	// StopTimeout bounds how long Stop waits for workers to drain
	StopTimeout time.Duration

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// Serializer coordinates interactive error inspection (optional,
	// defaults to the process-wide serializer)
	Serializer *debug.Serializer
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Workers:     runtime.GOMAXPROCS(0),
		StopTimeout: 2 * time.Second,
		Clock:       types.NewRealClock(),
	}
}

// Pool is the worker pool: a fixed set of workers, each repeatedly
// pulling from its own queue and stealing from peers when idle.
type Pool struct {
	config  *Config
	workers []*Worker

	// State management
	state     int32 // poolStopped, poolRunning, poolClosed
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	wg        sync.WaitGroup

	// Admission
	next    atomic.Uint64 // round-robin cursor
	pending atomic.Int64  // scheduled but not yet retrieved ordinary tasks

	// Idle workers park here; every admission signals it
	mu         sync.Mutex
	taskNotify *sync.Cond
}

// NewPool creates a new worker pool
func NewPool(config *Config) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", config.Workers)
	}
	if config.Clock == nil {
		config.Clock = types.NewRealClock()
	}
	if config.Serializer == nil {
		config.Serializer = debug.Default()
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = 2 * time.Second
	}

	p := &Pool{
		config:  config,
		workers: make([]*Worker, config.Workers),
	}
	p.taskNotify = sync.NewCond(&p.mu)

	schedConfig := &SchedulerConfig{Workers: config.Workers, SpinCount: config.SpinCount}
	for i := 0; i < config.Workers; i++ {
		p.workers[i] = newWorker(i, NewScheduler(schedConfig))
	}

	return p, nil
}

// Start starts the worker pool
func (p *Pool) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&p.state, poolStopped, poolRunning) {
		if atomic.LoadInt32(&p.state) == poolRunning {
			return fmt.Errorf("worker pool is already running")
		}
		return types.ErrPoolClosed
	}

	p.ctx, p.cancel = context.WithCancel(ctx)

	for _, w := range p.workers {
		p.wg.Add(1)
		go p.runWorker(w)
	}

	return nil
}

// Schedule admits task into a worker queue, fire-and-forget. The lane
// is selected by prio. The end-of-work sentinel is not ordinary work
// and is rejected here; Stop delivers it.
func (p *Pool) Schedule(task types.Task, prio types.Priority) error {
	if err := p.admitCheck(task); err != nil {
		return err
	}

	idx := int(p.next.Add(1)) % len(p.workers)
	p.workers[idx].sched.Schedule(task, prio)
	p.noteScheduled()
	return nil
}

// Submit admits task and returns a Future for its outcome. The
// handler chain installed in ctx (see the handlers package) is
// captured and stays active around the task body on the worker
// goroutine.
func (p *Pool) Submit(ctx context.Context, task types.Task, prio types.Priority) (*Future, error) {
	if task == nil {
		return nil, fmt.Errorf("task cannot be nil")
	}
	return p.Call(ctx, func(taskCtx context.Context) (any, error) {
		return nil, task.Execute(taskCtx)
	}, prio)
}

// Call admits a value-producing function as a task and returns a
// Future for its outcome.
func (p *Pool) Call(ctx context.Context, fn func(ctx context.Context) (any, error), prio types.Priority) (*Future, error) {
	if fn == nil {
		return nil, fmt.Errorf("task function cannot be nil")
	}

	pt := &promiseTask{
		id:      fmt.Sprintf("promise-%d", p.next.Load()+1),
		run:     fn,
		chain:   handlers.FromContext(ctx),
		outcome: make(chan Outcome, 1),
	}
	if err := p.Schedule(pt, prio); err != nil {
		return nil, err
	}
	return newFuture(pt.outcome), nil
}

// Next is owner-side retrieval for workerID's queue
func (p *Pool) Next(workerID int) (types.Task, error) {
	w, err := p.worker(workerID)
	if err != nil {
		return nil, err
	}
	task, err := w.sched.Next()
	if err != nil {
		return nil, err
	}
	p.noteRetrieved(task)
	return task, nil
}

// Steal steals from workerID's queue, blocking until stealable work
// is observed or ctx is done. The sentinel is never returned here.
func (p *Pool) Steal(ctx context.Context, workerID int) (types.Task, error) {
	w, err := p.worker(workerID)
	if err != nil {
		return nil, err
	}
	task, err := w.sched.Steal(ctx)
	if err != nil {
		return nil, err
	}
	p.noteRetrieved(task)
	return task, nil
}

// Stop stops the pool by delivering one end-of-work sentinel to each
// worker's queue, then waits for the workers to drain, bounded by
// StopTimeout. In-flight tasks run to completion; the context is
// cancelled afterwards as a backstop.
func (p *Pool) Stop() error {
	if !atomic.CompareAndSwapInt32(&p.state, poolRunning, poolStopped) {
		if atomic.LoadInt32(&p.state) == poolClosed {
			return types.ErrPoolClosed
		}
		return fmt.Errorf("worker pool is not running")
	}

	// One sentinel per worker, on the worker's own queue. Stealers
	// refuse it, so every worker stops on its own signal.
	for _, w := range p.workers {
		w.sched.Schedule(types.Sentinel(), types.PriorityDefault)
	}

	p.mu.Lock()
	p.taskNotify.Broadcast()
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-p.config.Clock.After(p.config.StopTimeout):
		// Workers stuck on in-flight work; cancel as a backstop.
	}
	p.cancel()
	return nil
}

// Close closes the worker pool and releases resources
func (p *Pool) Close() error {
	var closeErr error
	p.closeOnce.Do(func() {
		if err := p.Stop(); err != nil && err != types.ErrPoolClosed {
			if atomic.LoadInt32(&p.state) == poolRunning {
				closeErr = err
				return
			}
		}
		atomic.StoreInt32(&p.state, poolClosed)
	})
	return closeErr
}

// IsRunning checks if the worker pool is running
func (p *Pool) IsRunning() bool {
	return atomic.LoadInt32(&p.state) == poolRunning
}

// IsClosed checks if the worker pool is closed
func (p *Pool) IsClosed() bool {
	return atomic.LoadInt32(&p.state) == poolClosed
}

// Size returns the worker pool size
func (p *Pool) Size() int {
	return len(p.workers)
}

// Stats contains pool statistics
type Stats struct {
	Workers       int
	ActiveWorkers int
	QueueLengths  []int
	Pending       int64
}

// Stats returns pool statistics
func (p *Pool) Stats() Stats {
	stats := Stats{
		Workers:      len(p.workers),
		QueueLengths: make([]int, len(p.workers)),
		Pending:      p.pending.Load(),
	}
	for i, w := range p.workers {
		if w.State() == WorkerStateWorking {
			stats.ActiveWorkers++
		}
		stats.QueueLengths[i] = w.sched.Queue().Len()
	}
	return stats
}

func (p *Pool) worker(id int) (*Worker, error) {
	if id < 0 || id >= len(p.workers) {
		return nil, fmt.Errorf("no worker with id %d in a pool of %d", id, len(p.workers))
	}
	return p.workers[id], nil
}

func (p *Pool) admitCheck(task types.Task) error {
	switch atomic.LoadInt32(&p.state) {
	case poolRunning:
	case poolStopped:
		return types.ErrPoolNotStarted
	default:
		return types.ErrPoolClosed
	}
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if types.IsSentinel(task) {
		return fmt.Errorf("the end-of-work sentinel cannot be scheduled as ordinary work")
	}
	return nil
}

// noteScheduled makes an admission visible to parked workers. The
// pending count is bumped before the signal, and workers re-check it
// under the same mutex, so a wakeup is never lost.
func (p *Pool) noteScheduled() {
	p.pending.Add(1)
	p.mu.Lock()
	p.taskNotify.Signal()
	p.mu.Unlock()
}

func (p *Pool) noteRetrieved(task types.Task) {
	if !types.IsSentinel(task) {
		p.pending.Add(-1)
	}
}

// runWorker is one worker's loop: own queue first, then a steal sweep
// over the peers, then park until an admission signal.
func (p *Pool) runWorker(w *Worker) {
	defer func() {
		if r := recover(); r != nil {
			// The barrier captures task panics; anything reaching
			// here is a defect in the loop itself. Keep the pool
			// shutdown path intact regardless.
		}
		w.setState(WorkerStateStopped)
		p.wg.Done()
	}()

	w.setState(WorkerStateIdle)

	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		task := p.nextTask(w)
		if task == nil {
			return
		}
		if types.IsSentinel(task) {
			return
		}

		w.setState(WorkerStateWorking)
		p.execute(w, task)
		w.setState(WorkerStateIdle)
	}
}

// nextTask returns the next task for w, or nil when the pool is
// shutting down.
func (p *Pool) nextTask(w *Worker) types.Task {
	for {
		if task, err := w.sched.Next(); err == nil {
			p.noteRetrieved(task)
			return task
		}

		if task := p.sweep(w); task != nil {
			p.noteRetrieved(task)
			return task
		}

		if p.ctx.Err() != nil {
			return nil
		}

		p.mu.Lock()
		if atomic.LoadInt32(&p.state) != poolRunning {
			p.mu.Unlock()
			// Drain our own queue down to the sentinel
			if task, err := w.sched.Next(); err == nil {
				p.noteRetrieved(task)
				return task
			}
			return nil
		}
		if p.pending.Load() == 0 {
			p.taskNotify.Wait()
		}
		p.mu.Unlock()

		runtime.Gosched()
	}
}

// sweep tries to steal once from each peer queue, nearest first
func (p *Pool) sweep(w *Worker) types.Task {
	n := len(p.workers)
	for i := 1; i < n; i++ {
		peer := p.workers[(w.id+i)%n]
		if task, err := peer.sched.TrySteal(); err == nil {
			return task
		}
	}
	return nil
}

// execute runs one task under the full per-task machinery and
// delivers the outcome when the task carries a promise.
func (p *Pool) execute(w *Worker, task types.Task) {
	taskCtx := p.ctx
	pt, _ := task.(*promiseTask)
	if pt != nil && pt.chain != nil {
		taskCtx = handlers.WithChain(taskCtx, pt.chain)
	}

	body := func(ctx context.Context) (any, error) {
		if pt != nil {
			return pt.run(ctx)
		}
		return nil, task.Execute(ctx)
	}

	out := InstallAndRunWith(taskCtx, p.config.Serializer, body)

	atomic.AddInt64(&w.totalProcessed, 1)
	if out.State != OutcomeCompleted {
		atomic.AddInt64(&w.totalFailed, 1)
	}
	if pt != nil {
		pt.outcome <- out
	}
}

// promiseTask carries a value-producing body, the handler chain
// captured at submission, and the outcome channel its Future waits
// on.
type promiseTask struct {
	id      string
	run     func(ctx context.Context) (any, error)
	chain   handlers.Chain
	outcome chan Outcome
}

// ID returns the task ID
func (pt *promiseTask) ID() string {
	return pt.id
}

// Execute satisfies types.Task; the pool invokes run directly so the
// value survives, this path exists for callers that execute the task
// outside a pool.
func (pt *promiseTask) Execute(ctx context.Context) error {
	_, err := pt.run(ctx)
	return err
}
