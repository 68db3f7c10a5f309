package scheduler

import (
	"time"

	"github.com/webitel/fraktor-go/internal/toolbox"
)

// TickFeed is the bounded queue between a TickDriver and the scheduler's
// drive loop. Enqueue is safe to call from an ISR-equivalent context (the
// embedded toolbox profile's critical section); when full, ticks are
// dropped and counted rather than blocking the driver.
type TickFeed struct {
	mu       toolbox.Mutex
	capacity int
	pending  []tickStamp

	enqueuedTotal int64
	droppedTotal  int64

	windowStart time.Time
	windowCount int64
	ticksPerSec float64
	drift       time.Duration
	nominalPeriod time.Duration
}

type tickStamp struct {
	at time.Time
}

// NewTickFeed constructs a feed with room for capacity buffered ticks and
// a nominal tick period used to compute drift (how far the observed
// inter-tick interval has wandered from the declared one).
func NewTickFeed(capacity int, nominalPeriod time.Duration) *TickFeed {
	return &TickFeed{
		mu:            toolbox.Default().NewMutex(),
		capacity:      capacity,
		nominalPeriod: nominalPeriod,
	}
}

// Enqueue records one tick at now. ISR-safe: the critical section is a
// single bounded append, never an allocation-heavy operation beyond the
// initial slice growth.
func (f *TickFeed) Enqueue(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.windowStart.IsZero() {
		f.windowStart = now
	}

	if f.capacity > 0 && len(f.pending) >= f.capacity {
		f.droppedTotal++
		return
	}
	f.pending = append(f.pending, tickStamp{at: now})
	f.enqueuedTotal++
	f.windowCount++

	elapsed := now.Sub(f.windowStart)
	if elapsed >= time.Second {
		f.ticksPerSec = float64(f.windowCount) / elapsed.Seconds()
		if f.nominalPeriod > 0 {
			observedPeriod := elapsed / time.Duration(f.windowCount)
			f.drift = observedPeriod - f.nominalPeriod
		}
		f.windowStart = now
		f.windowCount = 0
	}
}

// Drain removes and returns every buffered tick, oldest first. Called by
// the scheduler's drive loop, never concurrently with itself.
func (f *TickFeed) Drain() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) == 0 {
		return nil
	}
	out := make([]time.Time, len(f.pending))
	for i, s := range f.pending {
		out[i] = s.at
	}
	f.pending = f.pending[:0]
	return out
}

// Metrics is a point-in-time snapshot of feed health.
type Metrics struct {
	TicksPerSec   float64
	Drift         time.Duration
	EnqueuedTotal int64
	DroppedTotal  int64
	Buffered      int
}

func (f *TickFeed) Snapshot() Metrics {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Metrics{
		TicksPerSec:   f.ticksPerSec,
		Drift:         f.drift,
		EnqueuedTotal: f.enqueuedTotal,
		DroppedTotal:  f.droppedTotal,
		Buffered:      len(f.pending),
	}
}
