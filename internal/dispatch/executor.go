package dispatch

import "context"

// Task is a unit of execution submitted to an Executor: the drive loop
// for one dispatcher's mailbox.
type Task func(ctx context.Context)

// Executor is the substrate a Dispatcher submits drive tasks to.
// Implementations must return ErrRejectedExecution rather than blocking
// when they cannot accept task immediately, so the dispatcher's retry
// budget is meaningful.
type Executor interface {
	Execute(ctx context.Context, task Task) error
	Shutdown(ctx context.Context) error
}
