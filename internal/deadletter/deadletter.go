// Package deadletter records undeliverable messages in a bounded ring
// and forwards each one to the event stream as both a DeadLetter event
// and a Log(Warn) event, both published after the registry's own lock is
// released.
package deadletter

import (
	"sync"
	"time"

	"github.com/webitel/fraktor-go/internal/eventstream"
)

// Reason classifies why a message could not be delivered.
type Reason int

const (
	NoRecipient Reason = iota
	MailboxFull
	MailboxClosed
	ActorStopped
	Suspended
	Custom
)

func (r Reason) String() string {
	switch r {
	case NoRecipient:
		return "no_recipient"
	case MailboxFull:
		return "mailbox_full"
	case MailboxClosed:
		return "mailbox_closed"
	case ActorStopped:
		return "actor_stopped"
	case Suspended:
		return "suspended"
	case Custom:
		return "custom"
	default:
		return "unknown"
	}
}

// Entry is one recorded dead letter.
type Entry struct {
	Message   any
	Reason    Reason
	Detail    string // free-form text supplied by the caller, for any Reason
	Recipient string // actor path, empty if unknown
	Timestamp time.Time
}

const defaultCapacity = 256

// Registry is a bounded ring of dead letters plus the event-stream
// publish wiring. DefaultCapacity matches the event stream's: both are
// meant to retain roughly the same recent-history window.
type Registry struct {
	mu       sync.Mutex
	ring     []Entry
	start    int
	len      int
	capacity int

	stream *eventstream.Stream
}

// New constructs a Registry of the given capacity (defaultCapacity if
// <= 0), publishing onto stream.
func New(capacity int, stream *eventstream.Stream) *Registry {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Registry{ring: make([]Entry, capacity), capacity: capacity, stream: stream}
}

// RecordSendError builds an Entry from the already classified reason,
// appends it, and
// publishes DeadLetter + Log(Warn) events, both after the registry's own
// lock has been released.
func (r *Registry) RecordSendError(recipient string, message any, reason Reason, detail string, ts time.Time) {
	entry := Entry{Message: message, Reason: reason, Detail: detail, Recipient: recipient, Timestamp: ts}

	r.mu.Lock()
	if r.len < r.capacity {
		idx := (r.start + r.len) % r.capacity
		r.ring[idx] = entry
		r.len++
	} else {
		r.ring[r.start] = entry
		r.start = (r.start + 1) % r.capacity
	}
	r.mu.Unlock()

	if r.stream == nil {
		return
	}
	r.stream.Publish(eventstream.Event{
		Kind:      eventstream.KindDeadLetter,
		Timestamp: ts,
		Path:      recipient,
		Reason:    reason.String(),
		Payload:   message,
	})
	r.stream.Publish(eventstream.Event{
		Kind:      eventstream.KindLog,
		Timestamp: ts,
		Level:     eventstream.LevelWarn,
		Message:   "message routed to dead letters: " + reason.String(),
		Path:      recipient,
	})
}

// Entries returns a copy of the currently retained dead letters, oldest
// first.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, r.len)
	for i := 0; i < r.len; i++ {
		out[i] = r.ring[(r.start+i)%r.capacity]
	}
	return out
}
