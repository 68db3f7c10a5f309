package mailbox

// PressureEvent is published when a bounded mailbox's utilization crosses
// the configured watermarks. Consumers (the event stream) receive it via
// the OnPressure hook rather than the mailbox importing the event stream
// package directly, keeping mailbox free of a dependency on anything
// above it in the stack.
type PressureEvent struct {
	UserLen      int
	SystemLen    int
	Utilization  float64
	Backpressure bool // true once crossing HighWatermark, false once back below LowWatermark
}

// DropEvent is published whenever DropOldest/DropNewest discards a
// message, so the owning cell can route it to dead letters.
type DropEvent struct {
	Message any
	Reason  Reason
}

// Hooks are the optional instrumentation callbacks a Mailbox invokes.
// Never invoked while the mailbox's internal lock is held.
type Hooks struct {
	OnPressure func(PressureEvent)
	OnDrop     func(DropEvent)
}
