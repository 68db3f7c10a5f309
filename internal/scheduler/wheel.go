package scheduler

import (
	"container/list"
	"time"

	"github.com/webitel/fraktor-go/internal/toolbox"
)

// entryKind distinguishes the three schedule shapes the wheel supports.
type entryKind int

const (
	kindOnce entryKind = iota
	kindFixedRate
	kindFixedDelay
)

type wheelEntry struct {
	handle *Handle
	cmd    Command
	kind   entryKind
	// interval is the fixed-rate/fixed-delay period; unused for kindOnce.
	interval time.Duration
	// rounds is how many additional full revolutions of the wheel must
	// pass before this entry is due; this is the "hierarchical" part: an
	// entry whose delay exceeds one revolution waits out the extra
	// revolutions here instead of needing a second wheel level.
	rounds int
}

// Wheel is the tick-keyed scheduler core: one slot per tick modulo the
// wheel's span, each slot holding the entries due in that tick (or a
// later revolution of it). Advance is called once per drained tick from
// the TickFeed and fires everything due in the slot it lands on.
type Wheel struct {
	mu          toolbox.Mutex
	tickPeriod  time.Duration
	buckets     []*list.List
	bucketIndex map[uint64]*list.Element // never populated: Cancel only marks the handle and Advance drops the entry lazily
	current     uint64
	nextID      uint64
}

// NewWheel constructs a wheel with span slots, each representing one
// tickPeriod of wall-clock time once driven by a TickFeed at that
// cadence.
func NewWheel(span int, tickPeriod time.Duration) *Wheel {
	if span <= 0 {
		span = 512
	}
	buckets := make([]*list.List, span)
	for i := range buckets {
		buckets[i] = list.New()
	}
	return &Wheel{
		mu:         toolbox.Default().NewMutex(),
		tickPeriod: tickPeriod,
		buckets:    buckets,
	}
}

func (w *Wheel) ticksFor(d time.Duration) (slots int, rounds int) {
	if d <= 0 {
		return 0, 0
	}
	span := len(w.buckets)
	totalTicks := int(d / w.tickPeriod)
	if totalTicks == 0 {
		totalTicks = 1
	}
	return totalTicks % span, totalTicks / span
}

// ScheduleOnce fires cmd after delay, exactly once.
func (w *Wheel) ScheduleOnce(delay time.Duration, cmd Command) *Handle {
	return w.insert(delay, 0, kindOnce, cmd)
}

// ScheduleAtFixedRate fires cmd first after initial, then every interval
// thereafter. Compensating: if the wheel falls behind (missed fires due
// to a stalled drive loop), the next Advance call fires the command once
// per missed period to catch up, rather than silently skipping them.
func (w *Wheel) ScheduleAtFixedRate(initial, interval time.Duration, cmd Command) *Handle {
	return w.insert(initial, interval, kindFixedRate, cmd)
}

// ScheduleWithFixedDelay fires cmd first after initial, then delay after
// each prior firing completes: the next fire is placed once the command
// has returned, delay past the wheel tick on which it ran. The wheel
// counts ticks, not wall-clock time, so ticks buffered during a stalled
// drive loop are still applied one by one and the fires due in them run,
// the same as for fixed-rate entries.
func (w *Wheel) ScheduleWithFixedDelay(initial, delay time.Duration, cmd Command) *Handle {
	return w.insert(initial, delay, kindFixedDelay, cmd)
}

func (w *Wheel) insert(delay, interval time.Duration, kind entryKind, cmd Command) *Handle {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	handle := newHandle(w.nextID)
	w.place(delay, &wheelEntry{handle: handle, cmd: cmd, kind: kind, interval: interval})
	return handle
}

// place must be called with w.mu held.
func (w *Wheel) place(delay time.Duration, entry *wheelEntry) {
	slot, rounds := w.ticksFor(delay)
	entry.rounds = rounds
	idx := (int(w.current) + slot) % len(w.buckets)
	w.buckets[idx].PushBack(entry)
}

// Cancel marks h cancelled. The entry is lazily dropped the next time its
// bucket is visited rather than searched for immediately.
func (w *Wheel) Cancel(h *Handle) {
	h.Cancel()
}

// Advance moves the wheel forward by one tick and fires every entry due
// in the bucket it lands on, in enqueue order within that bucket.
// Commands in earlier tick buckets always fire before later ones because
// Advance is called once per tick in order; within one bucket, FIFO list
// order preserves enqueue order.
func (w *Wheel) Advance(now time.Time) []firedEntry {
	w.mu.Lock()
	w.current++
	idx := int(w.current) % len(w.buckets)
	bucket := w.buckets[idx]

	var due []firedEntry
	var keep *list.List = list.New()

	for e := bucket.Front(); e != nil; e = e.Next() {
		entry := e.Value.(*wheelEntry)
		if entry.handle.Cancelled() {
			entry.handle.markCompleted()
			continue
		}
		if entry.rounds > 0 {
			entry.rounds--
			keep.PushBack(entry)
			continue
		}
		due = append(due, firedEntry{entry: entry, firedAt: now})
	}
	w.buckets[idx] = keep

	// Re-check cancellation immediately before handing back for
	// invocation: best-effort, closes most of the race window between
	// Cancel and the actual fire.
	due = filterCancelled(due)

	for _, f := range due {
		switch f.entry.kind {
		case kindFixedRate:
			// Compensating: the next fire is placed relative to the
			// original schedule, not to when this one actually ran, so a
			// stalled drive loop catches up rather than drifting later.
			w.place(f.entry.interval, &wheelEntry{
				handle:   f.entry.handle,
				cmd:      f.entry.cmd,
				kind:     f.entry.kind,
				interval: f.entry.interval,
			})
		case kindOnce:
			f.entry.handle.markCompleted()
			// kindFixedDelay is rescheduled by RescheduleFixedDelay after
			// the caller actually runs the command, not here.
		}
	}
	w.mu.Unlock()
	return due
}

// RescheduleFixedDelay places the next occurrence of a fixed-delay entry
// interval after its previous run has finished executing. Called by the
// driving scheduler once Fire() returns for a kindFixedDelay entry; never
// called for fixed-rate or one-shot entries.
func (w *Wheel) RescheduleFixedDelay(f firedEntry) {
	if f.entry.kind != kindFixedDelay {
		return
	}
	w.mu.Lock()
	w.place(f.entry.interval, &wheelEntry{
		handle:   f.entry.handle,
		cmd:      f.entry.cmd,
		kind:     f.entry.kind,
		interval: f.entry.interval,
	})
	w.mu.Unlock()
}

// IsFixedDelay reports whether f is a fixed-delay entry, so the caller knows
// whether to call RescheduleFixedDelay after firing it.
func (f firedEntry) IsFixedDelay() bool {
	return f.entry.kind == kindFixedDelay
}

func filterCancelled(due []firedEntry) []firedEntry {
	out := due[:0]
	for _, f := range due {
		if !f.entry.handle.Cancelled() {
			out = append(out, f)
		} else {
			f.entry.handle.markCompleted()
		}
	}
	return out
}

type firedEntry struct {
	entry   *wheelEntry
	firedAt time.Time
}

// Fire invokes the command this entry carries. Split from Advance so the
// caller (Scheduler.Drive) can run commands outside the wheel's lock.
func (f firedEntry) Fire() {
	f.entry.cmd()
}
