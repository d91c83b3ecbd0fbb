package sched

import (
	"context"
)

// Future is the consumer-side handle for one submitted task. The
// outcome is delivered exactly once; Wait may be called any number of
// times from any goroutine.
type Future struct {
	outcome chan Outcome
	done    chan struct{}
	out     Outcome
}

func newFuture(outcome chan Outcome) *Future {
	return &Future{outcome: outcome, done: make(chan struct{})}
}

// Wait blocks until the task's outcome is available or ctx is done
func (f *Future) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-f.done:
		return f.out, nil
	case out := <-f.outcome:
		f.out = out
		close(f.done)
		return out, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Result waits for the outcome and unwraps it on the calling
// goroutine: the task's value on completion, or the transported
// failure surfaced as an ordinary error, exactly as if it had been
// raised synchronously in this call.
func (f *Future) Result(ctx context.Context) (any, error) {
	out, err := f.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return out.Unwrap()
}
