package dispatch

import "errors"

// ErrRejectedExecution is returned by an Executor when it cannot accept a
// task right now (e.g. a bounded pool's queue is full). The dispatcher
// retries a bounded number of times before giving up for this drive
// cycle; the mailbox is untouched and will be re-driven on the next
// enqueue.
var ErrRejectedExecution = errors.New("execution rejected")

// ErrShuttingDown is returned by an Executor that has been stopped and
// will accept no further tasks.
var ErrShuttingDown = errors.New("executor is shutting down")
