package sched

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jzx17/goscheduler/pkg/debug"
	"github.com/jzx17/goscheduler/pkg/handlers"
	"github.com/jzx17/goscheduler/pkg/result"
	"github.com/jzx17/goscheduler/pkg/types"
)

// TaskContext is the non-local-exit target established once per task
// invocation. A current context exists only while a task body runs;
// task bodies reach it through FromContext.
type TaskContext struct {
	serializer *debug.Serializer
	killed     atomic.Bool

	mu        sync.Mutex
	inspected error
}

type taskContextKey struct{}

// FromContext returns the current task context, if a task body is
// executing in this dynamic extent.
func FromContext(ctx context.Context) (*TaskContext, bool) {
	tc, ok := ctx.Value(taskContextKey{}).(*TaskContext)
	return tc, ok
}

func withTaskContext(ctx context.Context, tc *TaskContext) context.Context {
	return context.WithValue(ctx, taskContextKey{}, tc)
}

// transferSignal is the private unwinding value used by Transfer. It
// is recovered only by the barrier of the context that raised it; any
// other panic value propagates untouched.
type transferSignal struct {
	tc  *TaskContext
	err *result.WrappedError
}

// Transfer aborts the current task body from arbitrarily deep nested
// code and substitutes a transported failure as the task's result.
// A nil err defaults to the error currently under inspection. The
// worker goroutine survives; only this task's execution unwinds.
func (tc *TaskContext) Transfer(err error) {
	if err == nil {
		err = tc.Inspected()
	}
	if err == nil {
		err = tc.serializer.InspectedError()
	}
	if err == nil {
		err = errors.New("transfer with no error under inspection")
	}
	panic(&transferSignal{tc: tc, err: result.Wrap(err)})
}

// Kill delivers the cooperative cancellation signal. The task body
// observes it at points of its choosing via Err.
func (tc *TaskContext) Kill() {
	tc.killed.Store(true)
}

// Killed reports whether the kill signal was delivered
func (tc *TaskContext) Killed() bool {
	return tc.killed.Load()
}

// Err returns ErrTaskKilled once the kill signal was delivered, nil
// otherwise. Task bodies call this at safe points to cooperate with
// cancellation.
func (tc *TaskContext) Err() error {
	if tc.killed.Load() {
		return types.ErrTaskKilled
	}
	return nil
}

// Inspected returns the error this context recorded for inspection
func (tc *TaskContext) Inspected() error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.inspected
}

func (tc *TaskContext) setInspected(err error) {
	tc.mu.Lock()
	tc.inspected = err
	tc.mu.Unlock()
}

// Body is one task's executable body. The returned value becomes the
// Completed outcome's value.
type Body func(ctx context.Context) (any, error)

// InstallAndRun wraps body with the full per-task machinery: the
// execution barrier, client-handler dispatch, and serialized debugger
// inspection. Errors raised by the body never unwind past this call;
// they come back inside the Outcome.
//
// When the calling goroutine already runs under an active barrier
// (re-entrant invocation), body runs directly without reinstalling
// the hook or the restart layer.
func InstallAndRun(ctx context.Context, body Body) Outcome {
	return InstallAndRunWith(ctx, debug.Default(), body)
}

// InstallAndRunWith is InstallAndRun with an explicit serializer
func InstallAndRunWith(ctx context.Context, s *debug.Serializer, body Body) Outcome {
	if tc, active := FromContext(ctx); active {
		return tc.runNested(ctx, body)
	}

	tc := &TaskContext{serializer: s}
	return tc.run(withTaskContext(ctx, tc), body)
}

// runNested executes a re-entrant invocation under the existing
// barrier. No hook reinstall, no second session-lock scope: a plain
// error becomes a transported failure directly, and a Transfer from
// inside unwinds to the one active barrier.
func (tc *TaskContext) runNested(ctx context.Context, body Body) Outcome {
	v, err := body(ctx)
	if err != nil {
		return Transferred(result.Wrap(err))
	}
	return Completed(v)
}

func (tc *TaskContext) run(ctx context.Context, body Body) (out Outcome) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if sig, ok := r.(*transferSignal); ok && sig.tc == tc {
			out = Transferred(sig.err)
			return
		}
		// A stray panic from the task body is still a transportable
		// failure; the worker goroutine must survive it.
		out = Transferred(result.Wrap(panicError(r)))
	}()

	v, err := body(ctx)
	if err == nil {
		return Completed(v)
	}
	return tc.resolve(ctx, err)
}

// resolve implements the propagation policy for an error the body
// returned: client handlers first, then one serialized inspection
// session, and finally capture into the result channel.
func (tc *TaskContext) resolve(ctx context.Context, err error) Outcome {
	if errors.Is(err, types.ErrTaskKilled) || tc.Killed() {
		return Outcome{State: OutcomeKilled, Err: result.Wrap(err)}
	}

	res, handled := handlers.Dispatch(ctx, err)
	if handled {
		return Completed(nil)
	}
	err = res

	// One interactive session, serialized process-wide. A hook may
	// call Transfer, which unwinds straight to this task's barrier.
	tc.setInspected(err)
	tc.serializer.Inspect(tc, err)

	// Nothing intervened: the failure still reaches the consumer
	// through the normal result channel.
	return Transferred(result.Wrap(err))
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("task panicked: %w", err)
	}
	return fmt.Errorf("task panicked: %v", r)
}
