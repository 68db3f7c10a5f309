package dispatch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/webitel/fraktor-go/internal/mailbox"
)

type countingInvoker struct {
	system atomic.Int64
	user   atomic.Int64
}

func (c *countingInvoker) InvokeSystem(any) { c.system.Add(1) }
func (c *countingInvoker) InvokeUser(any)   { c.user.Add(1) }

func TestRegisterForExecutionSchedulesOnceUntilIdle(t *testing.T) {
	mb := mailbox.New(mailbox.DefaultConfig(), mailbox.Hooks{})
	invoker := &countingInvoker{}
	d := New(mb, NewInlineExecutor(), invoker, DefaultConfig())

	for i := 0; i < 5; i++ {
		if _, _, err := mb.EnqueueUser(i); err != nil {
			t.Fatal(err)
		}
		d.RegisterForExecution(context.Background())
	}

	if !d.IsIdle() {
		t.Fatal("expected dispatcher to settle back to idle")
	}
	if invoker.user.Load() != 5 {
		t.Fatalf("expected 5 user invocations, got %d", invoker.user.Load())
	}
}

type rejectNTimesExecutor struct {
	rejections int
	calls      int
}

func (e *rejectNTimesExecutor) Execute(ctx context.Context, task Task) error {
	e.calls++
	if e.calls <= e.rejections {
		return ErrRejectedExecution
	}
	task(ctx)
	return nil
}
func (e *rejectNTimesExecutor) Shutdown(context.Context) error { return nil }

func TestRejectedExecutionIsRetriedAndLoggedOnFailure(t *testing.T) {
	mb := mailbox.New(mailbox.DefaultConfig(), mailbox.Hooks{})
	invoker := &countingInvoker{}
	executor := &rejectNTimesExecutor{rejections: 10} // exceeds MaxRetries
	cfg := DefaultConfig()
	cfg.MaxRetries = 2

	d := New(mb, executor, invoker, cfg)
	var loggedErr error
	d.OnRejected = func(err error) { loggedErr = err }

	if _, _, err := mb.EnqueueUser("x"); err != nil {
		t.Fatal(err)
	}
	d.RegisterForExecution(context.Background())

	if loggedErr == nil {
		t.Fatal("expected OnRejected to fire after exhausting retries")
	}
	if !d.IsIdle() {
		t.Fatal("expected dispatcher to revert to idle after giving up")
	}
	if invoker.user.Load() != 0 {
		t.Fatal("message should remain undelivered after rejection")
	}

	// A subsequent enqueue must be able to re-register from Idle.
	executor.rejections = 0
	d.RegisterForExecution(context.Background())
	if invoker.user.Load() != 1 {
		t.Fatalf("expected delivery after executor recovers, got %d", invoker.user.Load())
	}
}

func TestDispatcherRespectsThroughputLimit(t *testing.T) {
	mb := mailbox.New(mailbox.Config{Capacity: mailbox.Unbounded(), Overflow: mailbox.DropNewest}, mailbox.Hooks{})
	invoker := &countingInvoker{}
	cfg := DefaultConfig()
	cfg.Throughput = 3
	cfg.ThroughputDeadline = time.Second

	for i := 0; i < 10; i++ {
		if _, _, err := mb.EnqueueUser(i); err != nil {
			t.Fatal(err)
		}
	}

	executor := &rejectNTimesExecutor{}
	d := New(mb, executor, invoker, cfg)
	d.RegisterForExecution(context.Background())

	if invoker.user.Load() != 10 {
		t.Fatalf("expected all 10 eventually drained via resubmission, got %d", invoker.user.Load())
	}
	// 10 messages at 3 per pass: passes of 3, 3, 3 and 1.
	if executor.calls != 4 {
		t.Fatalf("expected 4 drive passes, got %d", executor.calls)
	}
}
