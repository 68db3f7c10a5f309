package actor

import (
	"fmt"
	"time"

	"github.com/webitel/fraktor-go/internal/ask"
)

// refSystem is the subset of SystemState a Ref needs to route a Tell or
// drive an Ask. Kept as an interface (rather than importing *SystemState
// directly) so this file has no dependency on system.go's heavier surface,
// and so tests can exercise Ref against a fake.
type refSystem interface {
	deliverUser(target Pid, env Envelope) error
	deliverSystem(target Pid, msg SystemMessage) error
	pathOf(target Pid) (Path, bool)
	askRegistry() *ask.Registry
	scheduleAskTimeout(id uint64, timeout time.Duration)
}

// Ref is a location-transparent handle to an actor. It carries a Pid plus
// an ordinary (strong, not weak) reference to the owning system, so a held
// Ref keeps that system reachable. It stays a cheap value even after the
// cell behind it has stopped (it holds a Path, so it is not comparable
// with ==); a
// Tell against a stopped cell is not an error, it is routed to dead
// letters by the system the same as any other undeliverable send.
//
// askID is non-zero only for the synthetic reply-only Ref Ask builds: such
// a Ref identifies no cell, and Tell against it completes the bound ask
// future instead of routing through the owning system's mailboxes.
type Ref struct {
	pid    Pid
	path   Path
	system refSystem
	askID  uint64
}

// NewRef constructs a Ref. Only called by the system package that owns
// the cell the Pid identifies.
func NewRef(pid Pid, path Path, system refSystem) Ref {
	return Ref{pid: pid, path: path, system: system}
}

// newAskReplyRef builds the synthetic reply-only Ref Ask attaches as an
// envelope's ReplyTo, bound to the future registered under id.
func newAskReplyRef(id uint64, system refSystem) Ref {
	return Ref{system: system, askID: id}
}

// IsNobody reports whether this is the null Ref returned by Nobody().
func (r Ref) IsNobody() bool {
	return r.system == nil && r.pid.IsNil()
}

// IsAskReply reports whether r is a synthetic reply-only Ref built by Ask,
// rather than a handle to a real cell.
func (r Ref) IsAskReply() bool {
	return r.askID != 0
}

// Pid returns the identity this ref points at.
func (r Ref) Pid() Pid { return r.pid }

// Path returns the hierarchical path this ref points at.
func (r Ref) Path() Path { return r.path }

func (r Ref) String() string {
	if r.IsAskReply() {
		return fmt.Sprintf("ask-reply#%d", r.askID)
	}
	if r.IsNobody() {
		return "nobody"
	}
	return r.path.Format()
}

// Tell delivers payload asynchronously, best-effort: the call never
// blocks on the recipient's processing and never returns an error to the
// caller. Undeliverable sends (terminated recipient, full mailbox,
// suspended cell) are instead routed to the system's dead letter office.
//
// Against a synthetic ask-reply Ref, Tell instead completes the bound
// ask future with payload; there is no cell or mailbox behind it.
func (r Ref) Tell(payload any, sender Ref) {
	if r.IsAskReply() {
		r.system.askRegistry().Complete(r.askID, payload)
		return
	}
	if r.IsNobody() {
		return
	}
	_ = r.system.deliverUser(r.pid, Envelope{Payload: payload, Sender: sender})
}

// Ask sends payload to the actor behind r and returns a Future that
// settles with the actor's reply (via ctx.Reply), or fails on timeout,
// on a delivery failure, or if the owning scheduler cannot arm the
// timeout. A timeout of 0 disables the timeout arm; the future then
// only settles via reply or delivery failure.
func (r Ref) Ask(payload any, timeout time.Duration) *ask.Future {
	if r.IsNobody() {
		return ask.Failed(ask.FailureTargetStopped)
	}
	registry := r.system.askRegistry()
	future := registry.New()
	replyRef := newAskReplyRef(future.ID(), r.system)
	if err := r.system.deliverUser(r.pid, Envelope{Payload: payload, Sender: replyRef, ReplyTo: replyRef}); err != nil {
		registry.Fail(future.ID(), ask.FailureTargetStopped)
		return future
	}
	if timeout > 0 {
		r.system.scheduleAskTimeout(future.ID(), timeout)
	}
	return future
}

// TellAny satisfies scheduler.MessageSink so a scheduler SendMessage
// command can target a Ref without the scheduler package depending on
// the actor package. sender is expected to be a Ref (or nil); any other
// type is treated as Nobody().
func (r Ref) TellAny(payload any, sender any) {
	s, _ := sender.(Ref)
	r.Tell(payload, s)
}

// tellSystem delivers a SystemMessage with priority over queued user
// messages. Unexported: only the actor package's own lifecycle machinery
// constructs SystemMessage values.
func (r Ref) tellSystem(msg SystemMessage) error {
	if r.IsNobody() {
		return nil
	}
	return r.system.deliverSystem(r.pid, msg)
}
