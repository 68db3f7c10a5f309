package actor

import (
	"github.com/webitel/fraktor-go/internal/mailbox"
	"github.com/webitel/fraktor-go/internal/actor/supervision"
)

// Factory builds a fresh Actor instance. A cell calls it once at Create
// and again on every Recreate, so Actor implementations must be stateless
// at construction time and move any bootstrap work into PreStart.
type Factory func() Actor

// Props is the immutable recipe a cell is spawned from: what behavior to
// run, what name to claim, and how its mailbox, dispatcher and
// supervision should be configured.
type Props struct {
	New        Factory
	Name       string // empty requests an auto-generated name
	Mailbox    mailbox.Config
	Dispatcher string // dispatcher id, resolved against the system's dispatcher registry
	Strategy   supervision.Strategy
}

// FromFunc builds Props around a bare receive function, wrapping it in a
// funcActor so simple actors don't need a named type.
func FromFunc(fn func(Context, Envelope) error) Props {
	return Props{New: func() Actor {
		return &funcActor{receive: fn}
	}}
}

// WithName returns a copy of p that requests the given name.
func (p Props) WithName(name string) Props {
	p.Name = name
	return p
}

// WithMailbox returns a copy of p using the given mailbox configuration.
func (p Props) WithMailbox(cfg mailbox.Config) Props {
	p.Mailbox = cfg
	return p
}

// WithDispatcher returns a copy of p pinned to the named dispatcher.
func (p Props) WithDispatcher(id string) Props {
	p.Dispatcher = id
	return p
}

// WithStrategy returns a copy of p using the given supervisor strategy.
func (p Props) WithStrategy(s supervision.Strategy) Props {
	p.Strategy = s
	return p
}

// funcActor adapts a bare receive function to the Actor interface.
type funcActor struct {
	receive func(Context, Envelope) error
}

func (a *funcActor) Receive(ctx Context, env Envelope) error { return a.receive(ctx, env) }
func (a *funcActor) PreStart(Context) error                  { return nil }
func (a *funcActor) PostStop(Context) error                  { return nil }
func (a *funcActor) PreRestart(ctx Context, cause error) error {
	return DefaultPreRestart(a, ctx, cause)
}
func (a *funcActor) PostRestart(ctx Context, cause error) error {
	return DefaultPostRestart(a, ctx, cause)
}
func (a *funcActor) SupervisorStrategy() supervision.Strategy {
	return supervision.Default()
}
