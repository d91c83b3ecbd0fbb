package sched

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jzx17/goscheduler/pkg/debug"
	"github.com/jzx17/goscheduler/pkg/handlers"
	"github.com/jzx17/goscheduler/pkg/types"
)

func startPool(t *testing.T, config *Config) *Pool {
	t.Helper()
	pool, err := NewPool(config)
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

// TestPoolSubmitAndResult tests the value round trip through a worker
func TestPoolSubmitAndResult(t *testing.T) {
	pool := startPool(t, &Config{Workers: 2, Serializer: debug.NewSerializer()})

	future, err := pool.Call(context.Background(), func(ctx context.Context) (any, error) {
		return 6 * 7, nil
	}, types.PriorityDefault)
	require.NoError(t, err)

	v, err := future.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	// Wait is repeatable
	out, err := future.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, out.State)
}

// TestPoolErrorTransport tests that a worker-side failure surfaces on
// the consumer goroutine, exactly once, at unwrap time
func TestPoolErrorTransport(t *testing.T) {
	pool := startPool(t, &Config{Workers: 2, Serializer: debug.NewSerializer()})
	cause := errors.New("worker-side failure")

	future, err := pool.Call(context.Background(), func(ctx context.Context) (any, error) {
		return nil, cause
	}, types.PriorityDefault)
	require.NoError(t, err)

	out, err := future.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeTransferred, out.State)

	_, err = out.Unwrap()
	assert.Equal(t, cause, err)

	// The worker survived: the pool still serves tasks
	future2, err := pool.Call(context.Background(), func(ctx context.Context) (any, error) {
		return "still alive", nil
	}, types.PriorityDefault)
	require.NoError(t, err)
	v, err := future2.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "still alive", v)
}

// TestPoolHandlerAcrossBoundary tests that handlers installed by the
// submitting goroutine stay active around the task body on the worker
func TestPoolHandlerAcrossBoundary(t *testing.T) {
	pool := startPool(t, &Config{Workers: 2, Serializer: debug.NewSerializer()})
	cause := errors.New("recoverable failure")

	var handledOn atomic.Bool
	err := handlers.With(context.Background(), []handlers.Binding{
		handlers.On(cause, func(ctx context.Context, err error) error {
			handledOn.Store(true)
			return nil
		}),
	}, func(ctx context.Context) error {
		future, err := pool.Call(ctx, func(taskCtx context.Context) (any, error) {
			return nil, cause
		}, types.PriorityDefault)
		require.NoError(t, err)

		out, err := future.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, OutcomeCompleted, out.State, "handler should have resolved the failure")
		return nil
	})

	require.NoError(t, err)
	assert.True(t, handledOn.Load())
}

// TestPoolKilledTask tests cooperative cancellation end to end
func TestPoolKilledTask(t *testing.T) {
	pool := startPool(t, &Config{Workers: 1, Serializer: debug.NewSerializer()})

	release := make(chan struct{})
	future, err := pool.Call(context.Background(), func(ctx context.Context) (any, error) {
		tc, ok := FromContext(ctx)
		if !ok {
			return nil, errors.New("no task context on the worker")
		}
		tc.Kill()
		<-release
		// cooperative checkpoint
		if err := tc.Err(); err != nil {
			return nil, types.NewKilledError("victim")
		}
		return nil, nil
	}, types.PriorityDefault)
	require.NoError(t, err)

	close(release)
	out, err := future.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeKilled, out.State)

	_, err = out.Unwrap()
	assert.True(t, errors.Is(err, types.ErrTaskKilled))
}

// TestPoolExternalRetrieval tests the kernel-facing Next/Steal surface
// against a busy worker's queue
func TestPoolExternalRetrieval(t *testing.T) {
	pool := startPool(t, &Config{Workers: 1, Serializer: debug.NewSerializer()})

	block := make(chan struct{})
	_, err := pool.Call(context.Background(), func(ctx context.Context) (any, error) {
		<-block
		return nil, nil
	}, types.PriorityDefault)
	require.NoError(t, err)
	defer close(block)

	// Wait for the single worker to be busy on the blocker
	require.Eventually(t, func() bool {
		return pool.Stats().ActiveWorkers == 1
	}, 2*time.Second, time.Millisecond)

	require.NoError(t, pool.Schedule(noop("stealable"), types.PriorityDefault))
	require.NoError(t, pool.Schedule(noop("leftover"), types.PriorityLow))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stolen, err := pool.Steal(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "stealable", stolen.ID())

	rest, err := pool.Next(0)
	require.NoError(t, err)
	assert.Equal(t, "leftover", rest.ID())

	_, err = pool.Next(0)
	assert.ErrorIs(t, err, types.ErrQueueEmpty)
}

// TestPoolStealingBetweenWorkers tests that idle workers pick up a
// busy peer's backlog
func TestPoolStealingBetweenWorkers(t *testing.T) {
	pool := startPool(t, &Config{Workers: 4, Serializer: debug.NewSerializer()})

	const tasks = 200
	var done atomic.Int64

	var g errgroup.Group
	for i := 0; i < tasks; i++ {
		prio := types.PriorityDefault
		if i%3 == 0 {
			prio = types.PriorityLow
		}
		task := types.NewFuncTask(func(ctx context.Context) error {
			done.Add(1)
			return nil
		})
		g.Go(func() error { return pool.Schedule(task, prio) })
	}
	require.NoError(t, g.Wait())

	assert.Eventually(t, func() bool {
		return done.Load() == tasks
	}, 5*time.Second, time.Millisecond)
}

// TestPoolLifecycle tests state transitions
func TestPoolLifecycle(t *testing.T) {
	t.Run("ScheduleBeforeStart", func(t *testing.T) {
		pool, err := NewPool(&Config{Workers: 1})
		require.NoError(t, err)
		err = pool.Schedule(noop("early"), types.PriorityDefault)
		assert.ErrorIs(t, err, types.ErrPoolNotStarted)
	})

	t.Run("DoubleStart", func(t *testing.T) {
		pool := startPool(t, &Config{Workers: 1, Serializer: debug.NewSerializer()})
		err := pool.Start(context.Background())
		assert.Error(t, err)
	})

	t.Run("SentinelIsNotOrdinaryWork", func(t *testing.T) {
		pool := startPool(t, &Config{Workers: 1, Serializer: debug.NewSerializer()})
		err := pool.Schedule(types.Sentinel(), types.PriorityDefault)
		assert.Error(t, err)
	})

	t.Run("StopDrainsWorkers", func(t *testing.T) {
		pool, err := NewPool(&Config{Workers: 3, Serializer: debug.NewSerializer()})
		require.NoError(t, err)
		require.NoError(t, pool.Start(context.Background()))

		var ran atomic.Int64
		for i := 0; i < 30; i++ {
			require.NoError(t, pool.Schedule(types.NewFuncTask(func(ctx context.Context) error {
				ran.Add(1)
				return nil
			}), types.PriorityDefault))
		}

		require.NoError(t, pool.Stop())
		assert.False(t, pool.IsRunning())

		err = pool.Schedule(noop("late"), types.PriorityDefault)
		assert.ErrorIs(t, err, types.ErrPoolNotStarted)
	})

	t.Run("CloseIsIdempotent", func(t *testing.T) {
		pool, err := NewPool(&Config{Workers: 1, Serializer: debug.NewSerializer()})
		require.NoError(t, err)
		require.NoError(t, pool.Start(context.Background()))
		require.NoError(t, pool.Close())
		assert.True(t, pool.IsClosed())
		assert.NoError(t, pool.Close())

		err = pool.Schedule(noop("late"), types.PriorityDefault)
		assert.ErrorIs(t, err, types.ErrPoolClosed)
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		_, err := NewPool(&Config{Workers: 0})
		assert.Error(t, err)
		_, err = NewPool(&Config{Workers: -3})
		assert.Error(t, err)
	})
}

// TestPoolStopTimeout tests the cancel backstop for stuck tasks
func TestPoolStopTimeout(t *testing.T) {
	pool, err := NewPool(&Config{
		Workers:     1,
		StopTimeout: 50 * time.Millisecond,
		Serializer:  debug.NewSerializer(),
	})
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))

	future, err := pool.Call(context.Background(), func(ctx context.Context) (any, error) {
		<-ctx.Done() // never yields on its own
		return nil, ctx.Err()
	}, types.PriorityDefault)
	require.NoError(t, err)

	// Let the worker pick the task up before stopping
	require.Eventually(t, func() bool {
		return pool.Stats().ActiveWorkers == 1
	}, 2*time.Second, time.Millisecond)

	start := time.Now()
	require.NoError(t, pool.Stop())
	assert.Less(t, time.Since(start), 2*time.Second)

	out, err := future.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeTransferred, out.State)
	_, err = out.Unwrap()
	assert.True(t, errors.Is(err, context.Canceled))
}

// TestPoolStats tests observability accessors
func TestPoolStats(t *testing.T) {
	pool := startPool(t, &Config{Workers: 3, Serializer: debug.NewSerializer()})

	stats := pool.Stats()
	assert.Equal(t, 3, stats.Workers)
	assert.Len(t, stats.QueueLengths, 3)
	assert.Equal(t, 3, pool.Size())
	assert.True(t, pool.IsRunning())

	var g errgroup.Group
	for i := 0; i < 12; i++ {
		i := i
		g.Go(func() error {
			return pool.Schedule(noop(fmt.Sprintf("s-%d", i)), types.PriorityDefault)
		})
	}
	require.NoError(t, g.Wait())

	assert.Eventually(t, func() bool {
		return pool.Stats().Pending == 0
	}, 2*time.Second, time.Millisecond)
}
