package mailbox

import (
	"container/list"

	"github.com/webitel/fraktor-go/internal/toolbox"
)

// Message is what Dequeue hands back: System reports whether Value came
// from the system queue, which is always preferred when both queues hold
// messages.
type Message struct {
	System bool
	Value  any
}

// Mailbox is the per-actor priority dual-queue a Dispatcher drives. The
// system side is a lock-free MPSC queue (see queue.go); the user side is
// a mutex-guarded list so bounded capacity, DropOldest eviction and Block
// overflow can be implemented without a CAS retry loop for policies that
// need to inspect length under a lock anyway.
type Mailbox struct {
	cfg   Config
	hooks Hooks

	mu             toolbox.Mutex
	userQueue      *list.List
	suspended      bool
	closed         bool
	pressureActive bool

	sys *systemQueue

	pendingWaiters *list.List // *PendingHandle, FIFO, resolved as space frees
}

// New constructs a Mailbox from cfg. hooks may be the zero value if no
// instrumentation is desired.
func New(cfg Config, hooks Hooks) *Mailbox {
	return &Mailbox{
		cfg:            cfg,
		hooks:          hooks,
		mu:             toolbox.Default().NewMutex(),
		userQueue:      list.New(),
		sys:            newSystemQueue(),
		pendingWaiters: list.New(),
	}
}

// EnqueueSystem bypasses suspension and capacity entirely; it cannot fail
// for capacity reasons. Safe for concurrent callers.
func (m *Mailbox) EnqueueSystem(msg any) error {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return &SendError{Reason: ReasonClosed, Message: msg}
	}
	m.sys.push(msg)
	return nil
}

// EnqueueUser applies the configured overflow policy. Returns Outcome and
// a non-nil *PendingHandle only when err is nil and the overflow policy
// is Block and the queue was observed full.
func (m *Mailbox) EnqueueUser(msg any) (Outcome, *PendingHandle, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, nil, &SendError{Reason: ReasonClosed, Message: msg}
	}
	if m.suspended {
		m.mu.Unlock()
		return 0, nil, &SendError{Reason: ReasonSuspended, Message: msg}
	}

	full := m.cfg.Capacity.Bounded && m.userQueue.Len() >= m.cfg.Capacity.Limit
	if !full {
		m.userQueue.PushBack(msg)
		outcome := Outcome(Enqueued)
		fire, event := m.publishPressureLocked()
		m.mu.Unlock()
		m.emitPressure(fire, event)
		return outcome, nil, nil
	}

	switch m.cfg.Overflow {
	case DropNewest:
		m.mu.Unlock()
		return 0, nil, &SendError{Reason: ReasonFull, Message: msg}
	case DropOldest:
		front := m.userQueue.Front()
		var dropped any
		if front != nil {
			dropped = front.Value
			m.userQueue.Remove(front)
		}
		m.userQueue.PushBack(msg)
		fire, event := m.publishPressureLocked()
		m.mu.Unlock()
		m.emitPressure(fire, event)
		if dropped != nil && m.hooks.OnDrop != nil {
			m.hooks.OnDrop(DropEvent{Message: dropped, Reason: ReasonFull})
		}
		return Enqueued, nil, nil
	case Grow:
		m.userQueue.PushBack(msg)
		fire, event := m.publishPressureLocked()
		m.mu.Unlock()
		m.emitPressure(fire, event)
		return Enqueued, nil, nil
	case Block:
		if !toolbox.Default().Blocking() {
			// No native park on this profile; degrade to DropNewest.
			m.mu.Unlock()
			return 0, nil, &SendError{Reason: ReasonFull, Message: msg}
		}
		handle := newPendingHandle()
		m.pendingWaiters.PushBack(pendingEnqueue{handle: handle, message: msg})
		m.mu.Unlock()
		return Pending, handle, nil
	default:
		m.mu.Unlock()
		return 0, nil, &SendError{Reason: ReasonFull, Message: msg}
	}
}

type pendingEnqueue struct {
	handle  *PendingHandle
	message any
}

// Dequeue returns the next message, preferring the system queue. Returns
// ok=false when both queues are empty. While suspended, only system
// messages are returned.
func (m *Mailbox) Dequeue() (Message, bool) {
	if v, ok := m.sys.pop(); ok {
		return Message{System: true, Value: v}, true
	}

	m.mu.Lock()
	if m.suspended {
		m.mu.Unlock()
		return Message{}, false
	}
	front := m.userQueue.Front()
	if front == nil {
		m.mu.Unlock()
		return Message{}, false
	}
	value := front.Value
	m.userQueue.Remove(front)

	// Admit one waiter now that a slot freed up.
	var admitted *pendingEnqueue
	if w := m.pendingWaiters.Front(); w != nil {
		pe := w.Value.(pendingEnqueue)
		m.pendingWaiters.Remove(w)
		m.userQueue.PushBack(pe.message)
		admitted = &pe
	}
	fire, event := m.publishPressureLocked()
	m.mu.Unlock()
	m.emitPressure(fire, event)

	if admitted != nil {
		admitted.handle.resolve()
	}
	return Message{Value: value}, true
}

// Suspend sets the suspended flag. Idempotent.
func (m *Mailbox) Suspend() {
	m.mu.Lock()
	m.suspended = true
	m.mu.Unlock()
}

// Resume clears the suspended flag. Idempotent.
func (m *Mailbox) Resume() {
	m.mu.Lock()
	m.suspended = false
	m.mu.Unlock()
}

// Close marks the mailbox closed; subsequent enqueues are rejected.
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func (m *Mailbox) UserLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userQueue.Len()
}

func (m *Mailbox) SystemLen() int {
	return m.sys.len()
}

// ThroughputLimit returns the configured max user messages per drive
// cycle, or 0 if unset (meaning the dispatcher should fall back to its
// own default).
func (m *Mailbox) ThroughputLimit() int {
	return m.cfg.Throughput
}

// publishPressureLocked must be called with mu held; it computes
// utilization and reports whether OnPressure should fire for a watermark
// crossing. The caller invokes emitPressure with the result only after
// releasing mu, per the deadlock-freedom invariant shared with the event
// stream: no hook runs while the mailbox's lock is held.
func (m *Mailbox) publishPressureLocked() (bool, PressureEvent) {
	if !m.cfg.Capacity.Bounded || m.hooks.OnPressure == nil || m.cfg.Capacity.Limit == 0 {
		return false, PressureEvent{}
	}
	utilization := float64(m.userQueue.Len()) / float64(m.cfg.Capacity.Limit)
	event := PressureEvent{
		UserLen:     m.userQueue.Len(),
		SystemLen:   m.sys.len(),
		Utilization: utilization,
	}
	switch {
	case !m.pressureActive && utilization >= m.cfg.HighWatermark:
		m.pressureActive = true
		event.Backpressure = true
	case m.pressureActive && utilization <= m.cfg.LowWatermark:
		m.pressureActive = false
		event.Backpressure = false
	default:
		return false, PressureEvent{}
	}
	return true, event
}

// emitPressure invokes the OnPressure hook if fire is true. Must never be
// called while m.mu is held.
func (m *Mailbox) emitPressure(fire bool, event PressureEvent) {
	if fire && m.hooks.OnPressure != nil {
		m.hooks.OnPressure(event)
	}
}
