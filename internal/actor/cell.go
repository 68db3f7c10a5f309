package actor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/webitel/fraktor-go/internal/actor/supervision"
	"github.com/webitel/fraktor-go/internal/dispatch"
	"github.com/webitel/fraktor-go/internal/mailbox"
	"github.com/webitel/fraktor-go/internal/toolbox"
)

// LifecycleState is the cell's position in its state machine (spec'd
// machine: Created → Starting → Running ⇄ Suspended, → Restarting, →
// Stopping → Stopped).
type LifecycleState int32

const (
	StateCreated LifecycleState = iota
	StateStarting
	StateRunning
	StateSuspended
	StateRestarting
	StateStopping
	StateStopped
)

func (s LifecycleState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateRestarting:
		return "restarting"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// cell is the concrete, non-exported implementation behind a spawned
// Ref. Exactly one Actor instance is hosted at a time; restart swaps it
// for a fresh one from props.New.
type cell struct {
	pid    Pid
	path   Path
	parent *cell // nil for guardians
	name   string

	props Props
	actor Actor

	mb   *mailbox.Mailbox
	disp *dispatch.Dispatcher

	system *system

	state atomic.Int32

	mu         toolbox.Mutex // guards children/watchers/currentEnvelope/behavior stack
	children   map[string]*cell
	spawnOrder []string
	watchers   []Ref
	watching   map[Pid]struct{}

	currentEnvelope Envelope
	behavior        func(Context, Envelope) error // non-nil once Become is active

	restartCause error
}

func newCell(pid Pid, path Path, parent *cell, name string, props Props, sys *system) *cell {
	c := &cell{
		pid:      pid,
		path:     path,
		parent:   parent,
		name:     name,
		props:    props,
		system:   sys,
		children: make(map[string]*cell),
		watching: make(map[Pid]struct{}),
		mu:       toolbox.Default().NewMutex(),
	}
	c.mb = mailbox.New(props.Mailbox, mailbox.Hooks{
		OnDrop: func(ev mailbox.DropEvent) {
			sys.routeDeadLetter(path, ev.Message, deadLetterReasonFromMailbox(ev.Reason))
		},
		OnPressure: func(ev mailbox.PressureEvent) {
			sys.publishMailboxPressure(path, ev)
		},
	})
	executor := sys.executorFor(props.Dispatcher)
	c.disp = dispatch.New(c.mb, executor, c, sys.dispatcherConfig())
	c.disp.OnRejected = func(err error) {
		sys.publishDispatcherRejection(path, err)
	}
	c.state.Store(int32(StateCreated))
	return c
}

func (c *cell) Lifecycle() LifecycleState {
	return LifecycleState(c.state.Load())
}

func (c *cell) setLifecycle(s LifecycleState) {
	c.state.Store(int32(s))
}

// start runs the Created → Starting → Running transition: construct the
// actor instance, invoke PreStart, and on failure roll back (name
// released, pid removed, parent child-link unset) by delegating to the
// owning system.
func (c *cell) start() error {
	c.setLifecycle(StateStarting)
	c.actor = c.props.New()
	ctx := c.contextFor(Envelope{})
	if err := c.actor.PreStart(ctx); err != nil {
		c.setLifecycle(StateStopped)
		c.system.rollbackSpawn(c)
		return fmt.Errorf("pre_start failed for %s: %w", c.path, err)
	}
	c.setLifecycle(StateRunning)
	return nil
}

// InvokeSystem implements dispatch.Invoker. It must never propagate a
// panic or error back to the dispatcher; lifecycle transitions the
// message can't currently honor (e.g. Resume while Stopped) are no-ops.
func (c *cell) InvokeSystem(msg any) {
	switch m := msg.(type) {
	case Suspend:
		c.mb.Suspend()
		c.setLifecycle(StateSuspended)
	case Resume:
		if c.Lifecycle() == StateSuspended {
			c.mb.Resume()
			c.setLifecycle(StateRunning)
		}
	case Recreate:
		c.restart(m.Cause)
	case Watch:
		c.addWatcher(m.Watcher)
	case Unwatch:
		c.removeWatcher(m.Watcher)
	case Terminate:
		c.beginStop()
	case Terminated:
		c.onChildTerminated(m.Who)
	case Failure:
		c.onChildFailure(m)
	}
}

// InvokeUser implements dispatch.Invoker. A failure from Receive is
// captured here and routed to the parent's supervision path rather than
// returned to the dispatcher, per the drive-loop contract.
func (c *cell) InvokeUser(msg any) {
	if c.Lifecycle() != StateRunning {
		return
	}
	env, ok := msg.(Envelope)
	if !ok {
		env = Envelope{Payload: msg}
	}
	c.mu.Lock()
	c.currentEnvelope = env
	active := c.behavior
	c.mu.Unlock()

	ctx := c.contextFor(env)
	receive := c.actor.Receive
	if active != nil {
		receive = func(ctx Context, env Envelope) error { return active(ctx, env) }
	}

	if err := c.safeReceive(receive, ctx, env); err != nil {
		c.reportFailure(err)
	}
}

func (c *cell) safeReceive(receive func(Context, Envelope) error, ctx Context, env Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in receive: %v", r)
		}
	}()
	return receive(ctx, env)
}

// reportFailure sends a Failure system message up to the parent so its
// SupervisorStrategy can decide the directive; the guardian has no
// parent and applies its own default (Stop) inline.
func (c *cell) reportFailure(cause error) {
	if c.parent == nil {
		c.system.guardianFailure(c, cause)
		return
	}
	_ = c.parent.selfRef().tellSystem(Failure{Child: c.selfRef(), Cause: cause})
}

// strategyFor returns the strategy governing how c reacts to a child's
// failure: props.Strategy wins when it carries a Decider (the WithStrategy
// builder, used by funcActor-based actors that have no type of their own to
// hang a SupervisorStrategy override on), otherwise the actor's own method
// applies.
func (c *cell) strategyFor() supervision.Strategy {
	if c.props.Strategy.Decider != nil {
		return c.props.Strategy
	}
	return c.actor.SupervisorStrategy()
}

func (c *cell) onChildFailure(f Failure) {
	child := c.system.cellFor(f.Child.Pid())
	if child == nil {
		return
	}
	directive := c.system.ledger.Evaluate(c.strategyFor(), f.Child.Pid().Value, f.Cause, time.Now())
	c.applyDirective(child, f.Cause, directive)
}

func (c *cell) applyDirective(child *cell, cause error, directive supervision.Directive) {
	strategy := c.strategyFor()
	if strategy.Kind != supervision.AllForOne {
		c.applyDirectiveTo(child, cause, directive)
		return
	}

	c.mu.Lock()
	siblings := make(map[uint64]*cell, len(c.children))
	keys := make([]uint64, 0, len(c.children))
	for _, ch := range c.children {
		siblings[ch.pid.Value] = ch
		keys = append(keys, ch.pid.Value)
	}
	c.mu.Unlock()

	_ = supervision.FanOut(context.Background(), keys, int64(len(keys)), func(key uint64) error {
		c.applyDirectiveTo(siblings[key], cause, directive)
		return nil
	})
}

func (c *cell) applyDirectiveTo(t *cell, cause error, directive supervision.Directive) {
	switch directive {
	case supervision.Resume:
		t.mb.Resume()
		t.setLifecycle(StateRunning)
	case supervision.Restart:
		_ = t.selfRef().tellSystem(Recreate{Cause: cause})
	case supervision.Stop:
		_ = t.selfRef().tellSystem(Terminate{})
	case supervision.Escalate:
		c.reportFailure(cause)
	}
}

// restart runs the Restarting state: stop children, PreRestart, swap in
// a fresh actor instance, PostRestart.
func (c *cell) restart(cause error) {
	c.setLifecycle(StateRestarting)
	ctx := c.contextFor(Envelope{})

	c.stopChildrenSync()

	if c.actor != nil {
		if err := c.actor.PreRestart(ctx, cause); err != nil {
			c.escalate(err)
			return
		}
	}

	c.actor = c.props.New()
	if err := c.actor.PostRestart(ctx, cause); err != nil {
		c.escalate(err)
		return
	}
	c.setLifecycle(StateRunning)
}

func (c *cell) escalate(err error) {
	c.restartCause = err
	c.reportFailure(err)
}

// beginStop runs Stopping: stop children in reverse spawn order, await
// termination (cooperatively — each child's own Stopping completes
// asynchronously and reports back via Terminated), then once none
// remain, finish.
func (c *cell) beginStop() {
	if c.Lifecycle() == StateStopping || c.Lifecycle() == StateStopped {
		return
	}
	c.setLifecycle(StateStopping)

	c.mu.Lock()
	order := append([]string(nil), c.spawnOrder...)
	c.mu.Unlock()

	if len(order) == 0 {
		c.finishStop()
		return
	}
	for i := len(order) - 1; i >= 0; i-- {
		c.mu.Lock()
		child, ok := c.children[order[i]]
		c.mu.Unlock()
		if ok {
			_ = child.selfRef().tellSystem(Terminate{})
		}
	}
}

func (c *cell) onChildTerminated(who Ref) {
	c.mu.Lock()
	delete(c.children, who.Path().Segments[len(who.Path().Segments)-1])
	remaining := len(c.children)
	c.mu.Unlock()

	c.system.ledger.Forget(who.Pid().Value)

	if c.Lifecycle() == StateStopping && remaining == 0 {
		c.finishStop()
	}
}

func (c *cell) finishStop() {
	ctx := c.contextFor(Envelope{})
	if c.actor != nil {
		_ = c.actor.PostStop(ctx)
	}
	c.setLifecycle(StateStopped)
	c.mb.Close()
	c.system.timers.cancelAll(c.pid)
	c.system.onCellStopped(c)
}

func (c *cell) stopChildrenSync() {
	c.mu.Lock()
	order := append([]string(nil), c.spawnOrder...)
	c.mu.Unlock()
	for i := len(order) - 1; i >= 0; i-- {
		c.mu.Lock()
		child, ok := c.children[order[i]]
		c.mu.Unlock()
		if ok {
			_ = child.selfRef().tellSystem(Terminate{})
		}
	}
}

func (c *cell) addWatcher(w Ref) {
	if c.Lifecycle() == StateStopped {
		_ = w.tellSystem(Terminated{Who: c.selfRef()})
		return
	}
	c.mu.Lock()
	c.watchers = append(c.watchers, w)
	c.mu.Unlock()
}

func (c *cell) removeWatcher(w Ref) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, ww := range c.watchers {
		if ww.Pid() == w.Pid() {
			c.watchers = append(c.watchers[:i], c.watchers[i+1:]...)
			return
		}
	}
}

func (c *cell) watchersSnapshot() []Ref {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Ref(nil), c.watchers...)
}

func (c *cell) selfRef() Ref {
	return NewRef(c.pid, c.path, c.system)
}

// PublishDumpMetrics emits a DispatcherDump event snapshotting this cell's
// current mailbox depths, throughput budget and rejected-submission count.
// Intended for on-demand diagnostics (a debug endpoint or dashboard tick),
// not called on every drive cycle.
func (c *cell) PublishDumpMetrics() {
	c.system.publishDispatcherDump(c.path, c.disp.DumpMetrics())
}

func (c *cell) registerChild(name string, child *cell) {
	c.mu.Lock()
	c.children[name] = child
	c.spawnOrder = append(c.spawnOrder, name)
	c.mu.Unlock()
}

func (c *cell) hasChildName(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.children[name]
	return ok
}

func (c *cell) childRefs() []Ref {
	c.mu.Lock()
	defer c.mu.Unlock()
	refs := make([]Ref, 0, len(c.children))
	for _, ch := range c.children {
		refs = append(refs, ch.selfRef())
	}
	return refs
}

func deadLetterReasonFromMailbox(r mailbox.Reason) string {
	switch r {
	case mailbox.ReasonFull:
		return "mailbox_full"
	case mailbox.ReasonSuspended:
		return "suspended"
	case mailbox.ReasonClosed:
		return "mailbox_closed"
	default:
		return "custom"
	}
}
