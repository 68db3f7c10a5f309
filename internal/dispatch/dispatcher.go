package dispatch

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/webitel/fraktor-go/internal/mailbox"
)

// state values for the dispatcher's scheduling CAS.
const (
	stateIdle int32 = iota
	stateRunning
)

// Invoker is the cell-side capability a Dispatcher drives: pull one
// message at a time and hand it to the hosted actor. Both methods must
// never panic across the call boundary; any user-code failure is
// expected to be captured and routed to supervision internally, not
// returned here, so the drive loop keeps making progress.
type Invoker interface {
	InvokeSystem(msg any)
	InvokeUser(msg any)
}

// Config bundles the fairness knobs a Dispatcher enforces per drive
// cycle.
type Config struct {
	// Throughput bounds how many user messages one drive pulls before
	// yielding back to the executor, even if more are queued.
	Throughput int
	// ThroughputDeadline bounds the wall-clock time one drive may run,
	// independent of message count.
	ThroughputDeadline time.Duration
	// MaxRetries bounds how many times RegisterForExecution retries a
	// RejectedExecution before giving up and logging a failure.
	MaxRetries int
}

func DefaultConfig() Config {
	return Config{Throughput: 30, ThroughputDeadline: 25 * time.Millisecond, MaxRetries: 3}
}

// Dispatcher binds one Mailbox to one Executor and guarantees at-most-one
// concurrent drive via a CAS state machine: RegisterForExecution only
// submits a drive task when it wins the Idle→Running transition: a
// concurrent producer that loses the race returns without side effect,
// since the winner's drive loop will observe its enqueue before going
// back to Idle.
type Dispatcher struct {
	mailbox  *mailbox.Mailbox
	executor Executor
	invoker  Invoker
	cfg      Config

	state         atomic.Int32
	rejectedTotal atomic.Int64

	// OnRejected is invoked (outside any lock) when all MaxRetries of a
	// RegisterForExecution submission were rejected by the executor.
	OnRejected func(err error)
}

// Dump is a point-in-time snapshot of dispatcher-visible metrics, used by
// PublishDumpMetrics (the original's "publish_dump_metrics" diagnostic).
type Dump struct {
	UserLen         int
	SystemLen       int
	Throughput      int
	RejectedRetries int64
}

// DumpMetrics snapshots the dispatcher's current mailbox depths, effective
// throughput budget, and cumulative rejected-submission count.
func (d *Dispatcher) DumpMetrics() Dump {
	throughput := d.mailbox.ThroughputLimit()
	if throughput == 0 {
		throughput = d.cfg.Throughput
	}
	return Dump{
		UserLen:         d.mailbox.UserLen(),
		SystemLen:       d.mailbox.SystemLen(),
		Throughput:      throughput,
		RejectedRetries: d.rejectedTotal.Load(),
	}
}

// New constructs a Dispatcher. invoker is supplied by the owning cell so
// this package has no dependency on the actor package.
func New(mb *mailbox.Mailbox, executor Executor, invoker Invoker, cfg Config) *Dispatcher {
	return &Dispatcher{mailbox: mb, executor: executor, invoker: invoker, cfg: cfg}
}

// RegisterForExecution is called by a producer immediately after
// enqueueing a message. It is cheap to call redundantly: only the caller
// that wins the Idle→Running CAS submits a task.
func (d *Dispatcher) RegisterForExecution(ctx context.Context) {
	if !d.state.CompareAndSwap(stateIdle, stateRunning) {
		return
	}
	d.submit(ctx)
}

func (d *Dispatcher) submit(ctx context.Context) {
	var lastErr error
	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		err := d.executor.Execute(ctx, d.drive)
		if err == nil {
			return
		}
		lastErr = err
	}
	// Every attempt was rejected: revert to Idle so a future enqueue can
	// try again, and surface the failure for logging.
	d.state.Store(stateIdle)
	d.rejectedTotal.Add(1)
	if d.OnRejected != nil {
		d.OnRejected(lastErr)
	}
}

// drive runs one bounded pass over the mailbox: all available system
// messages, then up to cfg.Throughput user messages, subject to
// cfg.ThroughputDeadline. On exit it either resubmits (more work pending)
// or releases back to Idle.
func (d *Dispatcher) drive(ctx context.Context) {
	deadline := time.Now().Add(d.cfg.ThroughputDeadline)
	processed := 0

	throughput := d.mailbox.ThroughputLimit()
	if throughput == 0 {
		throughput = d.cfg.Throughput
	}

	for {
		msg, ok := d.mailbox.Dequeue()
		if !ok {
			break
		}
		if msg.System {
			d.invoker.InvokeSystem(msg.Value)
			continue
		}
		d.invoker.InvokeUser(msg.Value)
		processed++
		if processed >= throughput {
			break
		}
		if d.cfg.ThroughputDeadline > 0 && time.Now().After(deadline) {
			break
		}
	}

	more := d.mailbox.SystemLen() > 0 || d.mailbox.UserLen() > 0
	if more {
		// Remain scheduled: resubmit without releasing the CAS, so a
		// concurrent enqueue cannot slip through unobserved between our
		// last Dequeue and the state transition below.
		d.submit(ctx)
		return
	}

	d.state.Store(stateIdle)

	// A producer may have enqueued between our last empty Dequeue and the
	// Store above; re-check and re-register if so.
	if d.mailbox.SystemLen() > 0 || d.mailbox.UserLen() > 0 {
		d.RegisterForExecution(ctx)
	}
}

// IsIdle reports whether the dispatcher currently believes its mailbox is
// fully drained. Exposed for instrumentation/tests, not for control flow.
func (d *Dispatcher) IsIdle() bool {
	return d.state.Load() == stateIdle
}
