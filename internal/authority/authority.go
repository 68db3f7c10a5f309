// Package authority tracks per-remote-authority connection state for the
// actor system's addressing layer: Unresolved, Connected, or Quarantine
// with a deadline, plus a bounded deferred-message queue per authority.
// Transport is out of scope here; this package only provides the state
// machine transport layers consume.
package authority

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// State is the per-authority connection status.
type State int

const (
	Unresolved State = iota
	Connected
	Quarantined
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Connected:
		return "connected"
	case Quarantined:
		return "quarantined"
	default:
		return "unknown"
	}
}

// Deferred is one message that could not be sent while its authority was
// not Connected.
type Deferred struct {
	Payload any
	Queued  time.Time
}

type record struct {
	state    State
	deadline time.Time // valid only while state == Quarantined
	deferred []Deferred

	// breaker gates the transition into Quarantine: repeated send
	// failures trip it open, and the ReportFailure call that trips it
	// moves the record to Quarantined. Nothing reacts to the breaker
	// half-opening; SetConnected does not consult it. The breaker itself
	// never talks to the network — it only counts failures the caller
	// reports.
	breaker *gobreaker.CircuitBreaker
}

// Snapshot is a point-in-time view of one authority's state, returned by
// Snapshots() without holding the manager's lock.
type Snapshot struct {
	Authority      string
	State          State
	QuarantineEnds time.Time
	DeferredCount  int
}

// Manager tracks every known remote authority by its string identity
// (typically "system@host:port").
type Manager struct {
	mu             sync.Mutex
	records        map[string]*record
	maxDeferred    int
	quarantineFor  time.Duration
	breakerMaxFail uint32
}

// Config bounds the deferred queue size and the default quarantine
// duration applied when the circuit breaker trips.
type Config struct {
	MaxDeferredPerAuthority int
	QuarantineDuration      time.Duration
	BreakerMaxFailures      uint32
}

func DefaultConfig() Config {
	return Config{MaxDeferredPerAuthority: 64, QuarantineDuration: 30 * time.Second, BreakerMaxFailures: 5}
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxDeferredPerAuthority <= 0 {
		cfg.MaxDeferredPerAuthority = DefaultConfig().MaxDeferredPerAuthority
	}
	if cfg.QuarantineDuration <= 0 {
		cfg.QuarantineDuration = DefaultConfig().QuarantineDuration
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = DefaultConfig().BreakerMaxFailures
	}
	return &Manager{
		records:        make(map[string]*record),
		maxDeferred:    cfg.MaxDeferredPerAuthority,
		quarantineFor:  cfg.QuarantineDuration,
		breakerMaxFail: cfg.BreakerMaxFailures,
	}
}

func (m *Manager) recordFor(authority string) *record {
	r, ok := m.records[authority]
	if !ok {
		settings := gobreaker.Settings{
			Name:    authority,
			MaxRequests: 1,
			Timeout: m.quarantineFor,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= m.breakerMaxFail
			},
		}
		r = &record{breaker: gobreaker.NewCircuitBreaker(settings)}
		m.records[authority] = r
	}
	return r
}

// DeferSend queues payload for authority, evicting nothing: once
// MaxDeferredPerAuthority is reached further defers are dropped and the
// caller should route them to dead letters instead. Returns false if the
// queue was already full.
func (m *Manager) DeferSend(authority string, payload any, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.recordFor(authority)
	if len(r.deferred) >= m.maxDeferred {
		return false
	}
	r.deferred = append(r.deferred, Deferred{Payload: payload, Queued: now})
	return true
}

// ReportFailure tells the breaker a send attempt to authority failed.
// Repeated failures trip the breaker open, and the call that trips it
// transitions the authority to Quarantined (as an explicit SetQuarantine
// also does).
func (m *Manager) ReportFailure(authority string, now time.Time) {
	m.mu.Lock()
	r := m.recordFor(authority)
	_, _ = r.breaker.Execute(func() (any, error) { return nil, errSendFailed })
	tripped := r.breaker.State() == gobreaker.StateOpen
	if tripped && r.state != Quarantined {
		r.state = Quarantined
		r.deadline = now.Add(m.quarantineFor)
	}
	m.mu.Unlock()
}

// SetConnected transitions authority to Connected and returns every
// message that had been deferred while it was not connected, in FIFO
// order, for the caller to flush onto the now-live transport.
func (m *Manager) SetConnected(authority string) []Deferred {
	m.mu.Lock()
	r := m.recordFor(authority)
	r.state = Connected
	r.deadline = time.Time{}
	flushed := r.deferred
	r.deferred = nil
	m.mu.Unlock()
	return flushed
}

// SetQuarantine forces authority into Quarantined until now+duration
// (or the manager's configured default if duration <= 0).
func (m *Manager) SetQuarantine(authority string, now time.Time, duration time.Duration) {
	if duration <= 0 {
		duration = m.quarantineFor
	}
	m.mu.Lock()
	r := m.recordFor(authority)
	r.state = Quarantined
	r.deadline = now.Add(duration)
	m.mu.Unlock()
}

// PollQuarantineExpiration lifts every authority whose quarantine
// deadline has passed back to Unresolved, returning their identities so
// the caller can attempt reconnection.
func (m *Manager) PollQuarantineExpiration(now time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var lifted []string
	for authority, r := range m.records {
		if r.state == Quarantined && !r.deadline.IsZero() && !now.Before(r.deadline) {
			r.state = Unresolved
			r.deadline = time.Time{}
			lifted = append(lifted, authority)
		}
	}
	return lifted
}

// Snapshots returns a point-in-time view of every known authority.
func (m *Manager) Snapshots() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Snapshot, 0, len(m.records))
	for authority, r := range m.records {
		out = append(out, Snapshot{
			Authority:      authority,
			State:          r.state,
			QuarantineEnds: r.deadline,
			DeferredCount:  len(r.deferred),
		})
	}
	return out
}

// DeferredCount reports how many messages are queued for authority.
func (m *Manager) DeferredCount(authority string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[authority]
	if !ok {
		return 0
	}
	return len(r.deferred)
}

var errSendFailed = &sendFailedError{}

type sendFailedError struct{}

func (*sendFailedError) Error() string { return "remote send failed" }
