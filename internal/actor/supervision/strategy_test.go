package supervision

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultStrategyRestartsOnAnyError(t *testing.T) {
	s := Default()
	if got := s.Decider(errors.New("boom")); got != Restart {
		t.Fatalf("expected Restart, got %s", got)
	}
	if s.Kind != OneForOne {
		t.Fatalf("expected OneForOne, got %v", s.Kind)
	}
}

func TestLedgerEvaluateDowngradesToStopAfterMaxRetries(t *testing.T) {
	l := NewLedger()
	strategy := Strategy{Decider: func(error) Directive { return Restart }, MaxRetries: 2}
	cause := errors.New("boom")
	now := time.Now()

	for i := 0; i < 2; i++ {
		if got := l.Evaluate(strategy, 1, cause, now); got != Restart {
			t.Fatalf("attempt %d: expected Restart, got %s", i, got)
		}
	}
	if got := l.Evaluate(strategy, 1, cause, now); got != Stop {
		t.Fatalf("expected Stop after exceeding MaxRetries, got %s", got)
	}
}

func TestLedgerEvaluateUnlimitedRetriesNeverDowngrades(t *testing.T) {
	l := NewLedger()
	strategy := Strategy{Decider: func(error) Directive { return Restart }, MaxRetries: -1}
	cause := errors.New("boom")
	now := time.Now()

	for i := 0; i < 10; i++ {
		if got := l.Evaluate(strategy, 1, cause, now); got != Restart {
			t.Fatalf("attempt %d: expected Restart, got %s", i, got)
		}
	}
}

func TestLedgerEvaluateWithinWindowExpiresOldRestarts(t *testing.T) {
	l := NewLedger()
	strategy := Strategy{
		Decider:    func(error) Directive { return Restart },
		MaxRetries: 1,
		Within:     10 * time.Millisecond,
	}
	cause := errors.New("boom")
	base := time.Now()

	if got := l.Evaluate(strategy, 1, cause, base); got != Restart {
		t.Fatalf("first attempt: expected Restart, got %s", got)
	}
	if got := l.Evaluate(strategy, 1, cause, base.Add(time.Millisecond)); got != Stop {
		t.Fatalf("second attempt within window: expected Stop, got %s", got)
	}
	// Outside the window, the earlier restarts should have expired.
	if got := l.Evaluate(strategy, 1, cause, base.Add(time.Hour)); got != Restart {
		t.Fatalf("attempt outside window: expected Restart, got %s", got)
	}
}

func TestLedgerForgetDropsHistory(t *testing.T) {
	l := NewLedger()
	strategy := Strategy{Decider: func(error) Directive { return Restart }, MaxRetries: 1}
	cause := errors.New("boom")
	now := time.Now()

	if got := l.Evaluate(strategy, 1, cause, now); got != Restart {
		t.Fatalf("first attempt: expected Restart, got %s", got)
	}
	l.Forget(1)
	if got := l.Evaluate(strategy, 1, cause, now); got != Restart {
		t.Fatalf("after Forget: expected Restart (fresh history), got %s", got)
	}
}

func TestFanOutAppliesToEverySibling(t *testing.T) {
	var applied int64
	siblings := []uint64{1, 2, 3, 4, 5}

	err := FanOut(context.Background(), siblings, 2, func(uint64) error {
		atomic.AddInt64(&applied, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if int(applied) != len(siblings) {
		t.Fatalf("expected apply called %d times, got %d", len(siblings), applied)
	}
}

func TestFanOutPropagatesFirstError(t *testing.T) {
	boom := errors.New("boom")
	err := FanOut(context.Background(), []uint64{1, 2, 3}, 3, func(key uint64) error {
		if key == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected FanOut to surface the failure, got %v", err)
	}
}
