// Package eventstream implements the runtime-wide publish/subscribe bus:
// a bounded ring buffer of replayable events plus a snapshot-then-notify
// publish protocol that never invokes a subscriber callback while the
// stream's own lock is held.
package eventstream

import "time"

// Kind is the closed set of event categories the stream carries. New
// categories are added here, not invented ad hoc by callers, so every
// subscriber can exhaustively switch over Kind.
type Kind int

const (
	KindLog Kind = iota
	KindLifecycle
	KindDeadLetter
	KindMailbox
	KindMailboxPressure
	KindUnhandledMessage
	KindDispatcherDump
	KindSchedulerTick
	KindTickDriver
	KindAdapterFailure
	KindRemotingLifecycle
	KindRemotingBackpressure
	KindSerialization
	KindExtension
)

func (k Kind) String() string {
	switch k {
	case KindLog:
		return "log"
	case KindLifecycle:
		return "lifecycle"
	case KindDeadLetter:
		return "dead_letter"
	case KindMailbox:
		return "mailbox"
	case KindMailboxPressure:
		return "mailbox_pressure"
	case KindUnhandledMessage:
		return "unhandled_message"
	case KindDispatcherDump:
		return "dispatcher_dump"
	case KindSchedulerTick:
		return "scheduler_tick"
	case KindTickDriver:
		return "tick_driver"
	case KindAdapterFailure:
		return "adapter_failure"
	case KindRemotingLifecycle:
		return "remoting_lifecycle"
	case KindRemotingBackpressure:
		return "remoting_backpressure"
	case KindSerialization:
		return "serialization"
	case KindExtension:
		return "extension"
	default:
		return "unknown"
	}
}

// LogLevel mirrors slog's level vocabulary for KindLog events, so the
// slog bridge extension can translate one to the other without a lookup
// table.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Event is a single, cheaply-cloneable entry on the stream. Exactly the
// fields relevant to Kind are populated; the rest stay at their zero
// value. This flat-struct shape (rather than an interface per kind)
// keeps Event copyable by value, which is what "cheaply cloneable" in
// the routing contract requires.
type Event struct {
	Kind      Kind
	Timestamp time.Time

	// KindLog
	Level   LogLevel
	Message string

	// KindLifecycle / KindDeadLetter / KindUnhandledMessage
	Path string // actor path as a string, avoids an import on the actor package

	// KindMailboxPressure
	UserLen      int
	SystemLen    int
	Utilization  float64
	Backpressure bool

	// KindDeadLetter
	Reason  string
	Payload any

	// KindSchedulerTick / KindTickDriver
	TicksPerSec float64
	Drift       time.Duration

	// KindExtension
	ExtensionName string

	// KindDispatcherDump
	Throughput      int
	RejectedRetries int64

	// Err carries the underlying error for Kind values that report a
	// failure (AdapterFailure, Serialization, and KindLog at LevelError).
	Err error
}
