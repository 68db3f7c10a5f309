package actor

import (
	"time"

	"github.com/webitel/fraktor-go/internal/actor/supervision"
)

// Actor is the behavior a cell hosts. Receive is invoked once per user
// message; PreStart runs when the cell starts, and the other lifecycle
// hooks bracket the Recreate/Terminate system messages. No hook runs
// concurrently with Receive.
type Actor interface {
	Receive(ctx Context, env Envelope) error

	PreStart(ctx Context) error
	PostStop(ctx Context) error
	PreRestart(ctx Context, cause error) error
	PostRestart(ctx Context, cause error) error

	SupervisorStrategy() supervision.Strategy
}

// DefaultPreRestart runs the conventional restart teardown: PostStop,
// then let the cell dispose the failed instance and construct a fresh one
// from Props.New. Actor implementations that embed a base and only
// override Receive should delegate here.
func DefaultPreRestart(a Actor, ctx Context, cause error) error {
	return a.PostStop(ctx)
}

// DefaultPostRestart runs PreStart on the freshly constructed instance.
func DefaultPostRestart(a Actor, ctx Context, cause error) error {
	return a.PreStart(ctx)
}

// Base provides no-op implementations of every Actor hook so embedding
// types only need to override what they care about.
type Base struct{}

func (Base) PreStart(Context) error { return nil }
func (Base) PostStop(Context) error { return nil }

// PreRestart is a no-op by default. Embedders with real PostStop cleanup
// that should also run across a restart must override PreRestart and call
// DefaultPreRestart(self, ctx, cause) themselves, since Base has no handle
// on the concrete embedding type to do that on their behalf.
func (Base) PreRestart(Context, error) error  { return nil }
func (Base) PostRestart(Context, error) error { return nil }
func (Base) SupervisorStrategy() supervision.Strategy {
	return supervision.Default()
}

// Context is the capability set an Actor's hooks receive: identity,
// spawning children, timers, watching, and replying to the current
// sender.
type Context interface {
	Self() Ref
	Sender() Ref
	Parent() Ref
	Children() []Ref

	Spawn(props Props, name string) (Ref, error)
	Stop(child Ref)
	Watch(target Ref)
	Unwatch(target Ref)

	// Forward re-sends the current Envelope to target, preserving the
	// original sender so a reply chain can skip the forwarding hop.
	Forward(target Ref)

	// Reply completes the ask future bound to the current message's
	// reply path, if the sender used Ref.Ask rather than Ref.Tell.
	Reply(answer any)

	// StartTimer schedules msg to be delivered to Self after d, canceled
	// automatically if the cell stops first. At most one timer per key is
	// ever live for this actor: starting a new one under the same key
	// cancels the prior one. Returns key unchanged, usable with
	// CancelTimer.
	StartTimer(key string, d time.Duration, msg any) string
	CancelTimer(key string)

	// Become swaps the active receive function for subsequent messages,
	// the conventional actor-model "hot swap"; Unbecome restores the
	// Actor's own Receive method.
	Become(fn func(Context, Envelope) error)
	Unbecome()
}

// Nobody returns the null Ref, used as a sender placeholder when no
// reply path exists.
func Nobody() Ref {
	return Ref{}
}
