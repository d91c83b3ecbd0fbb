/*
Package sched implements the execution core of the parallel-task
runtime: a pool of workers over per-worker biased queues, and the
per-task machinery that carries failures from worker goroutines back
to whichever goroutine waits on the result.

# Overview

Work enters through a Scheduler (one per worker), which places tasks
into the normal or low lane of a BiasedQueue. Workers drain their own
queue first, sweep the peers' queues for stealable work when idle,
and park until an admission signals them. The distinguished
end-of-work sentinel stops exactly the worker it was delivered to;
stealers refuse it.

# Core Components

## Pool

Fixed worker pool. Each worker owns one queue; admission is
round-robin. Stop delivers one sentinel per worker and waits for the
drain, bounded by StopTimeout.

## TaskContext and InstallAndRun

Every task body runs under InstallAndRun, which establishes the
execution barrier. An error returned by the body is offered to the
client handler chain, then to one serialized inspection session, and
finally captured as a transported failure in the Outcome. Transfer
performs the non-local exit from anywhere inside the body straight to
the barrier. The worker goroutine survives all of it.

## Kernel

SetKernel registers a pool as the process kernel; the package-level
Schedule, Next and Steal go through it and fail with ErrNoKernel
until one is registered.

## Future

Consumer-side handle delivered through Submit and Call. Result
unwraps the outcome on the consumer's goroutine: a transported
failure surfaces there as an ordinary error, exactly once.
*/
package sched
