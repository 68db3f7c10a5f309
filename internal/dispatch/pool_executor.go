package dispatch

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// PoolExecutor runs tasks on a bounded pool of goroutines, rejecting
// immediately (ErrRejectedExecution) rather than queuing when every slot
// is busy — the dispatcher's own bounded retry governs resubmission, so
// the executor itself stays non-blocking.
type PoolExecutor struct {
	sem *semaphore.Weighted

	mu       sync.Mutex
	group    *errgroup.Group
	groupCtx context.Context
	cancel   context.CancelFunc
	stopped  bool
}

// NewPoolExecutor constructs a pool with room for concurrency
// simultaneously in-flight tasks.
func NewPoolExecutor(concurrency int64) *PoolExecutor {
	if concurrency <= 0 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(ctx)
	return &PoolExecutor{
		sem:      semaphore.NewWeighted(concurrency),
		group:    group,
		groupCtx: groupCtx,
		cancel:   cancel,
	}
}

func (e *PoolExecutor) Execute(ctx context.Context, task Task) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrShuttingDown
	}
	e.mu.Unlock()

	if !e.sem.TryAcquire(1) {
		return ErrRejectedExecution
	}
	e.group.Go(func() error {
		defer e.sem.Release(1)
		task(ctx)
		return nil
	})
	return nil
}

// Shutdown stops accepting new tasks and waits for in-flight ones to
// finish or ctx to be done, whichever comes first.
func (e *PoolExecutor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = e.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		e.cancel()
		return ctx.Err()
	}
}
