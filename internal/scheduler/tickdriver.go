package scheduler

import (
	"sync"
	"time"
)

// TickDriver is the external clock source feeding a TickFeed. Exactly
// one implementation runs per scheduler instance.
type TickDriver interface {
	// Enable starts delivering ticks to the feed. Idempotent.
	Enable()
	// Disable stops delivering ticks. Idempotent.
	Disable()
}

// ManualDriver lets a controller (tests, or a host without its own
// timer) inject ticks explicitly. Enable/Disable are no-ops; Tick is the
// only way time advances.
type ManualDriver struct {
	feed *TickFeed
}

func NewManualDriver(feed *TickFeed) *ManualDriver {
	return &ManualDriver{feed: feed}
}

func (d *ManualDriver) Enable()  {}
func (d *ManualDriver) Disable() {}

// Tick injects one tick at the given instant.
func (d *ManualDriver) Tick(at time.Time) {
	d.feed.Enqueue(at)
}

// AutoDriver runs a host-supplied periodic ticker (time.Ticker under a
// hosted profile) and feeds it to the TickFeed until Disabled.
type AutoDriver struct {
	feed   *TickFeed
	period time.Duration

	mu      sync.Mutex
	ticker  *time.Ticker
	stop    chan struct{}
	running bool
}

func NewAutoDriver(feed *TickFeed, period time.Duration) *AutoDriver {
	return &AutoDriver{feed: feed, period: period}
}

func (d *AutoDriver) Enable() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.ticker = time.NewTicker(d.period)
	d.stop = make(chan struct{})
	d.running = true
	go d.loop(d.ticker, d.stop)
}

func (d *AutoDriver) loop(ticker *time.Ticker, stop chan struct{}) {
	for {
		select {
		case now := <-ticker.C:
			d.feed.Enqueue(now)
		case <-stop:
			return
		}
	}
}

func (d *AutoDriver) Disable() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	d.ticker.Stop()
	close(d.stop)
	d.running = false
}

// PulseHandler is the callback a hardware tick source invokes, typically
// from an ISR. It must not block or allocate on the embedded profile.
type PulseHandler func(at time.Time)

// HardwareDriver wraps a TickPulseSource: a peripheral timer that invokes
// a registered callback on each pulse. The driver's job is just wiring
// the pulse to the feed; the pulse source itself is supplied by the host
// integration and is out of scope here.
type HardwareDriver struct {
	feed   *TickFeed
	source TickPulseSource
}

// TickPulseSource abstracts a hardware or host-timer interrupt source.
type TickPulseSource interface {
	SetCallback(handler PulseHandler)
	Enable()
	Disable()
}

func NewHardwareDriver(feed *TickFeed, source TickPulseSource) *HardwareDriver {
	d := &HardwareDriver{feed: feed, source: source}
	source.SetCallback(func(at time.Time) { feed.Enqueue(at) })
	return d
}

func (d *HardwareDriver) Enable()  { d.source.Enable() }
func (d *HardwareDriver) Disable() { d.source.Disable() }
