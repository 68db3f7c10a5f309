package scheduler

import (
	"sync"
	"time"
)

// Scheduler is the public entry point: a Wheel driven by ticks drained
// from a TickFeed. Drive must be called repeatedly (by a host loop or a
// dedicated goroutine) to advance time; the scheduler never starts its
// own goroutine implicitly so embedded profiles can drive it from a
// cooperative main loop instead.
type Scheduler struct {
	feed  *TickFeed
	wheel *Wheel

	mu      sync.Mutex
	driver  TickDriver
	stopped bool
	stopCh  chan struct{}
}

// New constructs a Scheduler around feed/wheel. The caller owns wiring a
// TickDriver to feed separately (see tickdriver.go); New only needs the
// feed to drain from.
func New(feed *TickFeed, wheel *Wheel) *Scheduler {
	return &Scheduler{feed: feed, wheel: wheel, stopCh: make(chan struct{})}
}

// ScheduleOnce delegates to the underlying wheel.
func (s *Scheduler) ScheduleOnce(delay time.Duration, cmd Command) (*Handle, error) {
	if delay < 0 {
		return nil, ErrInvalidDelay
	}
	if s.isStopped() {
		return nil, ErrSchedulerStopped
	}
	return s.wheel.ScheduleOnce(delay, cmd), nil
}

func (s *Scheduler) ScheduleAtFixedRate(initial, interval time.Duration, cmd Command) (*Handle, error) {
	if initial < 0 || interval < 0 {
		return nil, ErrInvalidDelay
	}
	if s.isStopped() {
		return nil, ErrSchedulerStopped
	}
	return s.wheel.ScheduleAtFixedRate(initial, interval, cmd), nil
}

func (s *Scheduler) ScheduleWithFixedDelay(initial, delay time.Duration, cmd Command) (*Handle, error) {
	if initial < 0 || delay < 0 {
		return nil, ErrInvalidDelay
	}
	if s.isStopped() {
		return nil, ErrSchedulerStopped
	}
	return s.wheel.ScheduleWithFixedDelay(initial, delay, cmd), nil
}

func (s *Scheduler) Cancel(h *Handle) {
	s.wheel.Cancel(h)
}

func (s *Scheduler) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Stop marks the scheduler stopped; Drive becomes a no-op and further
// schedule calls are rejected. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.stopCh)
}

// Drive drains every tick buffered in the feed since the last call and
// advances the wheel once per tick, firing due commands in tick order.
// Safe to call from a single dedicated goroutine or cooperatively from a
// host's own loop; must not be called concurrently with itself.
func (s *Scheduler) Drive() {
	if s.isStopped() {
		return
	}
	ticks := s.feed.Drain()
	for _, at := range ticks {
		fired := s.wheel.Advance(at)
		for _, f := range fired {
			if f.entry.handle.Cancelled() {
				f.entry.handle.markCompleted()
				continue
			}
			f.Fire()
			if f.IsFixedDelay() {
				s.wheel.RescheduleFixedDelay(f)
			}
		}
	}
}

// RunLoop drives the scheduler every period until Stop is called. Mainly
// useful on the hosted profile paired with an AutoDriver; embedded
// profiles should call Drive directly from their own cooperative loop
// instead of spawning this goroutine.
func (s *Scheduler) RunLoop(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Drive()
		case <-s.stopCh:
			return
		}
	}
}

// TickMetrics exposes the feed's health snapshot.
func (s *Scheduler) TickMetrics() Metrics {
	return s.feed.Snapshot()
}
