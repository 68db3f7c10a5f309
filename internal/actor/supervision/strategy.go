// Package supervision computes restart/stop/escalate decisions for a
// failed child cell and fans a directive out across siblings when the
// strategy is AllForOne.
package supervision

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Kind selects whether a directive applies only to the failed child
// (OneForOne) or to every sibling under the same supervisor (AllForOne).
type Kind int

const (
	OneForOne Kind = iota
	AllForOne
)

// Directive is the outcome a Decider returns for a given failure.
type Directive int

const (
	Resume Directive = iota
	Restart
	Stop
	Escalate
)

func (d Directive) String() string {
	switch d {
	case Resume:
		return "resume"
	case Restart:
		return "restart"
	case Stop:
		return "stop"
	case Escalate:
		return "escalate"
	default:
		return "unknown"
	}
}

// Decider maps a failure cause to a Directive. The default decider
// restarts on any error.
type Decider func(cause error) Directive

// Strategy configures how a supervisor reacts to child failures: which
// Decider to consult, whether the reaction fans out to siblings, and how
// many restarts are tolerated within a sliding window before the child is
// stopped instead.
type Strategy struct {
	Kind        Kind
	Decider     Decider
	MaxRetries  int           // <0 means unlimited
	Within      time.Duration // 0 means no window (MaxRetries counts for the cell's lifetime)
}

// Default returns the conventional OneForOne/restart-on-any-error
// strategy with no retry bound.
func Default() Strategy {
	return Strategy{
		Kind:       OneForOne,
		Decider:    func(error) Directive { return Restart },
		MaxRetries: -1,
	}
}

// restartLedger tracks restart timestamps for a single cell so MaxRetries
// can be evaluated against a sliding Within window.
type restartLedger struct {
	timestamps []time.Time
}

func (l *restartLedger) record(now time.Time, within time.Duration) int {
	if within <= 0 {
		l.timestamps = append(l.timestamps, now)
		return len(l.timestamps)
	}
	cutoff := now.Add(-within)
	kept := l.timestamps[:0]
	for _, ts := range l.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	l.timestamps = kept
	return len(l.timestamps)
}

// Ledger tracks per-child restart history so a strategy can decide, on
// repeated failure, to stop tolerating restarts and stop the child instead.
// Distinct parent cells evaluate and forget concurrently on the pool
// executor, so byChild is guarded by mu rather than assumed single-owner.
type Ledger struct {
	mu      sync.Mutex
	byChild map[uint64]*restartLedger
}

// NewLedger constructs an empty restart ledger.
func NewLedger() *Ledger {
	return &Ledger{byChild: make(map[uint64]*restartLedger)}
}

// Evaluate records a restart attempt for childKey at now and returns the
// directive the strategy settles on: the Decider's raw answer, downgraded
// to Stop if Restart was chosen but MaxRetries was exceeded within the
// configured window.
func (l *Ledger) Evaluate(s Strategy, childKey uint64, cause error, now time.Time) Directive {
	decider := s.Decider
	if decider == nil {
		decider = Default().Decider
	}
	directive := decider(cause)
	if directive != Restart || s.MaxRetries < 0 {
		return directive
	}

	l.mu.Lock()
	led, ok := l.byChild[childKey]
	if !ok {
		led = &restartLedger{}
		l.byChild[childKey] = led
	}
	count := led.record(now, s.Within)
	l.mu.Unlock()

	if count > s.MaxRetries {
		return Stop
	}
	return directive
}

// Forget drops restart history for a child, called once it is finally
// stopped or successfully stabilizes.
func (l *Ledger) Forget(childKey uint64) {
	l.mu.Lock()
	delete(l.byChild, childKey)
	l.mu.Unlock()
}

// FanOut applies apply to every sibling key concurrently, bounded by
// maxConcurrent, used to implement AllForOne restart/stop across a
// supervisor's children without serializing on the slowest one.
func FanOut(ctx context.Context, siblings []uint64, maxConcurrent int64, apply func(childKey uint64) error) error {
	if maxConcurrent <= 0 {
		maxConcurrent = int64(len(siblings))
		if maxConcurrent == 0 {
			maxConcurrent = 1
		}
	}
	sem := semaphore.NewWeighted(maxConcurrent)
	group, gctx := errgroup.WithContext(ctx)
	for _, key := range siblings {
		key := key
		group.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			return apply(key)
		})
	}
	return group.Wait()
}
