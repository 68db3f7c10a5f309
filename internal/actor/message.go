package actor

import "fmt"

// Envelope wraps a user message with its sender, so a receiving actor can
// reply without the caller threading a return address through the payload.
// ReplyTo is set only for an envelope built by Ref.Ask: a synthetic
// reply-only Ref bound to the asker's pending future, completed by
// ctx.Reply rather than routed through a cell's own mailbox.
type Envelope struct {
	Payload any
	Sender  Ref
	ReplyTo Ref
}

// As attempts to downcast the envelope payload to T, mirroring the
// type-erased "AnyMessage" pattern used across the runtime's message
// queues. Reports false rather than panicking on mismatch.
func As[T any](env Envelope) (T, bool) {
	v, ok := env.Payload.(T)
	return v, ok
}

// SystemMessage is the closed set of control signals a cell's mailbox
// treats with priority over user messages. Unlike Envelope payloads these
// are never user-extensible; the set is sealed here.
type SystemMessage interface {
	isSystemMessage()
}

// Create names the start of a cell's life. The runtime does not send it:
// a freshly registered cell runs PreStart directly from its start step,
// before it may receive any user message.
type Create struct{}

func (Create) isSystemMessage() {}

// Recreate instructs a cell to tear down and rebuild its behavior in
// place, used by a supervisor's Restart directive.
type Recreate struct {
	Cause error
}

func (Recreate) isSystemMessage() {}

// Suspend halts user-message processing until a matching Resume arrives.
type Suspend struct{}

func (Suspend) isSystemMessage() {}

// Resume lifts a prior Suspend.
type Resume struct{}

func (Resume) isSystemMessage() {}

// Terminate requests an orderly shutdown of the cell and its children.
type Terminate struct{}

func (Terminate) isSystemMessage() {}

// Watch registers watcher to be notified with a Terminated system message
// when the target cell stops.
type Watch struct {
	Watcher Ref
}

func (Watch) isSystemMessage() {}

// Unwatch cancels a prior Watch.
type Unwatch struct {
	Watcher Ref
}

func (Unwatch) isSystemMessage() {}

// Terminated is delivered to every watcher once a cell has fully stopped.
type Terminated struct {
	Who Ref
}

func (Terminated) isSystemMessage() {}

// Failure is reported by a child's cell up to its supervisor when the
// child's Receive returns an error or panics.
type Failure struct {
	Child Ref
	Cause error
}

func (Failure) isSystemMessage() {}

func (f Failure) Error() string {
	return fmt.Sprintf("actor %s failed: %v", f.Child, f.Cause)
}
