package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/webitel/fraktor-go/internal/actor/supervision"
	"github.com/webitel/fraktor-go/internal/ask"
	"github.com/webitel/fraktor-go/internal/authority"
	"github.com/webitel/fraktor-go/internal/deadletter"
	"github.com/webitel/fraktor-go/internal/dispatch"
	"github.com/webitel/fraktor-go/internal/eventstream"
	"github.com/webitel/fraktor-go/internal/extension"
	"github.com/webitel/fraktor-go/internal/mailbox"
	"github.com/webitel/fraktor-go/internal/scheduler"
	"github.com/webitel/fraktor-go/internal/toolbox"
)

// Config bundles the knobs System.New is constructed with.
type Config struct {
	Name                string
	DefaultDispatcherCfg dispatch.Config
	DefaultMailboxCfg    mailbox.Config
	EventStreamCapacity  int
	DeadLetterCapacity   int
	AuthorityConfig      authority.Config
	SchedulerSpan        int
	SchedulerTickPeriod  time.Duration
}

func DefaultSystemConfig(name string) Config {
	return Config{
		Name:                name,
		DefaultDispatcherCfg: dispatch.DefaultConfig(),
		DefaultMailboxCfg:    mailbox.DefaultConfig(),
		EventStreamCapacity:  eventstream.DefaultCapacity,
		DeadLetterCapacity:   256,
		AuthorityConfig:      authority.DefaultConfig(),
		SchedulerSpan:        512,
		SchedulerTickPeriod:  10 * time.Millisecond,
	}
}

// system is the unexported concrete backing for the public System
// handle; kept separate so Ref (defined before System in the package's
// conceptual layering) can depend only on the narrow refSystem
// interface it actually needs.
type system struct {
	cfg  Config
	path Path

	mu toolbox.RWMutex

	allocator pidAllocator
	cells     map[uint64]*cell // keyed by Pid.Value
	cellPaths map[uint64]Path

	userGuardian   *cell
	systemGuardian *cell

	dispatchers map[string]dispatch.Executor
	defaultExec dispatch.Executor

	stream      *eventstream.Stream
	deadLetters *deadletter.Registry
	asks        *ask.Registry
	authorities *authority.Manager
	sched       *scheduler.Scheduler
	tickFeed    *scheduler.TickFeed
	extensions  *extension.Registry
	ledger      *supervision.Ledger

	timers *timerRegistry

	shuttingDown bool
}

// System is the public handle a host application constructs and spawns
// top-level actors from.
type System struct {
	*system
}

// New constructs a System with the given configuration, installs the
// user and system guardians, and starts a default pool executor (an
// inline executor is also registered under the name "inline").
func New(cfg Config) (*System, error) {
	if cfg.Name == "" {
		cfg.Name = "fraktor"
	}
	stream := eventstream.New(cfg.EventStreamCapacity)
	s := &system{
		cfg:         cfg,
		path:        Local(cfg.Name),
		mu:          toolbox.Default().NewRWMutex(),
		cells:       make(map[uint64]*cell),
		cellPaths:   make(map[uint64]Path),
		dispatchers: make(map[string]dispatch.Executor),
		stream:      stream,
		deadLetters: deadletter.New(cfg.DeadLetterCapacity, stream),
		asks:        ask.NewRegistry(),
		authorities: authority.NewManager(cfg.AuthorityConfig),
		extensions:  extension.NewRegistry(),
		ledger:      supervision.NewLedger(),
		timers:      newTimerRegistry(),
	}
	s.defaultExec = dispatch.NewPoolExecutor(16)
	s.dispatchers["default"] = s.defaultExec
	s.dispatchers["inline"] = dispatch.NewInlineExecutor()

	feed := scheduler.NewTickFeed(1024, cfg.SchedulerTickPeriod)
	wheel := scheduler.NewWheel(cfg.SchedulerSpan, cfg.SchedulerTickPeriod)
	s.sched = scheduler.New(feed, wheel)
	s.tickFeed = feed

	root := &System{system: s}

	userGuardian, err := s.spawnGuardian(Local(cfg.Name, "user"), "user")
	if err != nil {
		return nil, fmt.Errorf("installing user guardian: %w", err)
	}
	systemGuardian, err := s.spawnGuardian(Local(cfg.Name, "system"), "system")
	if err != nil {
		return nil, fmt.Errorf("installing system guardian: %w", err)
	}
	s.userGuardian = userGuardian
	s.systemGuardian = systemGuardian

	return root, nil
}

func (s *system) spawnGuardian(path Path, label string) (*cell, error) {
	props := Props{New: func() Actor { return &guardianActor{label: label} }}
	pid := s.allocator.next(0)
	c := newCell(pid, path, nil, label, props, s)
	s.mu.Lock()
	s.cells[pid.Value] = c
	s.cellPaths[pid.Value] = path
	s.mu.Unlock()
	if err := c.start(); err != nil {
		return nil, err
	}
	return c, nil
}

// executorFor resolves a dispatcher id to its Executor, falling back to
// the default pool when id is empty or unknown.
func (s *system) executorFor(id string) dispatch.Executor {
	if id == "" {
		return s.defaultExec
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if exec, ok := s.dispatchers[id]; ok {
		return exec
	}
	return s.defaultExec
}

// RegisterDispatcher adds a named Executor that Props.WithDispatcher can
// reference.
func (s *system) RegisterDispatcher(id string, executor dispatch.Executor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatchers[id] = executor
}

func (s *system) dispatcherConfig() dispatch.Config {
	return s.cfg.DefaultDispatcherCfg
}

// ActorOf spawns a top-level actor under the user guardian.
func (s *System) ActorOf(props Props) (Ref, error) {
	return s.spawnChild(s.userGuardian, props, props.Name)
}

func (s *system) spawnChild(parent *cell, props Props, name string) (Ref, error) {
	if s.isShuttingDown() {
		return Ref{}, ErrSystemShuttingDown
	}
	if name == "" {
		pid := s.allocator.next(0)
		name = "$" + pid.String()
		return s.doSpawn(parent, props, name, pid)
	}
	if parent.hasChildName(name) {
		return Ref{}, &SpawnError{Name: parent.path.Child(name), Err: ErrNameInUse}
	}
	pid := s.allocator.next(0)
	return s.doSpawn(parent, props, name, pid)
}

var bgContext = context.Background()

func (s *system) doSpawn(parent *cell, props Props, name string, pid Pid) (Ref, error) {
	if props.Mailbox.Throughput == 0 {
		props.Mailbox = s.cfg.DefaultMailboxCfg
	}
	path := parent.path.Child(name)
	child := newCell(pid, path, parent, name, props, s)

	s.mu.Lock()
	s.cells[pid.Value] = child
	s.cellPaths[pid.Value] = path
	s.mu.Unlock()

	parent.registerChild(name, child)

	if err := child.start(); err != nil {
		return Ref{}, &SpawnError{Name: path, Err: err}
	}
	return child.selfRef(), nil
}

// rollbackSpawn removes a cell that failed PreStart: name and pid are
// released and the parent's child link is unset.
func (s *system) rollbackSpawn(c *cell) {
	s.mu.Lock()
	delete(s.cells, c.pid.Value)
	delete(s.cellPaths, c.pid.Value)
	s.mu.Unlock()
	if c.parent != nil {
		c.parent.mu.Lock()
		delete(c.parent.children, c.name)
		for i, n := range c.parent.spawnOrder {
			if n == c.name {
				c.parent.spawnOrder = append(c.parent.spawnOrder[:i], c.parent.spawnOrder[i+1:]...)
				break
			}
		}
		c.parent.mu.Unlock()
	}
}

func (s *system) onCellStopped(c *cell) {
	for _, w := range c.watchersSnapshot() {
		_ = w.tellSystem(Terminated{Who: c.selfRef()})
	}
	s.mu.Lock()
	delete(s.cells, c.pid.Value)
	delete(s.cellPaths, c.pid.Value)
	s.mu.Unlock()
	if c.parent != nil {
		_ = c.parent.selfRef().tellSystem(Terminated{Who: c.selfRef()})
	}
}

func (s *system) cellFor(pid Pid) *cell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cells[pid.Value]
}

func (s *system) isShuttingDown() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shuttingDown
}

// deliverUser implements refSystem. An undeliverable send is both routed
// to dead letters and reported as a *SendError; Ref.Tell discards that
// error, matching its best-effort contract, while Ask uses it to fail the
// future.
func (s *system) deliverUser(target Pid, env Envelope) error {
	c := s.cellFor(target)
	if c == nil {
		s.routeDeadLetter(Path{}, env.Payload, "no_recipient")
		return &SendError{Reason: SendReasonUnknownRecipient}
	}
	outcome, _, err := c.mb.EnqueueUser(env)
	if err != nil {
		sendErr, _ := err.(*mailbox.SendError)
		reason := "custom"
		sendReason := SendReasonMailboxFull
		if sendErr != nil {
			reason = deadLetterReasonFromMailbox(sendErr.Reason)
			switch sendErr.Reason {
			case mailbox.ReasonSuspended:
				sendReason = SendReasonSuspended
			case mailbox.ReasonClosed:
				sendReason = SendReasonTerminated
			}
		}
		s.routeDeadLetter(c.path, env.Payload, reason)
		return &SendError{Reason: sendReason, Recipient: c.path}
	}
	if outcome == mailbox.Enqueued {
		c.disp.RegisterForExecution(bgContext)
	}
	return nil
}

func (s *system) deliverSystem(target Pid, msg SystemMessage) error {
	c := s.cellFor(target)
	if c == nil {
		return &SendError{Reason: SendReasonUnknownRecipient}
	}
	if err := c.mb.EnqueueSystem(msg); err != nil {
		return &SendError{Reason: SendReasonTerminated, Recipient: c.path}
	}
	c.disp.RegisterForExecution(bgContext)
	return nil
}

func (s *system) pathOf(target Pid) (Path, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.cellPaths[target.Value]
	return p, ok
}

func (s *system) routeDeadLetter(path Path, payload any, reason string) {
	r := deadLetterReasonFromString(reason)
	recipient := ""
	if !path.Equal(Path{}) {
		recipient = path.Format()
	}
	s.deadLetters.RecordSendError(recipient, payload, r, reason, time.Now())
}

func deadLetterReasonFromString(reason string) deadletter.Reason {
	switch reason {
	case "mailbox_full":
		return deadletter.MailboxFull
	case "mailbox_closed":
		return deadletter.MailboxClosed
	case "suspended":
		return deadletter.Suspended
	case "no_recipient":
		return deadletter.NoRecipient
	case "actor_stopped":
		return deadletter.ActorStopped
	default:
		return deadletter.Custom
	}
}

func (s *system) publishMailboxPressure(path Path, ev mailbox.PressureEvent) {
	s.stream.Publish(eventstream.Event{
		Kind:         eventstream.KindMailboxPressure,
		Timestamp:    time.Now(),
		Path:         path.Format(),
		UserLen:      ev.UserLen,
		SystemLen:    ev.SystemLen,
		Utilization:  ev.Utilization,
		Backpressure: ev.Backpressure,
	})
}

func (s *system) publishDispatcherRejection(path Path, err error) {
	s.stream.Publish(eventstream.Event{
		Kind:      eventstream.KindLog,
		Timestamp: time.Now(),
		Level:     eventstream.LevelError,
		Message:   "dispatcher execution rejected",
		Path:      path.Format(),
		Err:       err,
	})
}

func (s *system) publishDispatcherDump(path Path, dump dispatch.Dump) {
	s.stream.Publish(eventstream.Event{
		Kind:            eventstream.KindDispatcherDump,
		Timestamp:       time.Now(),
		Path:            path.Format(),
		UserLen:         dump.UserLen,
		SystemLen:       dump.SystemLen,
		Throughput:      dump.Throughput,
		RejectedRetries: dump.RejectedRetries,
	})
}

func (s *system) guardianFailure(c *cell, cause error) {
	// The root guardian has no parent; the default decider is Stop, so
	// any unhandled escalation terminates the guardian's own subtree.
	s.stream.Publish(eventstream.Event{
		Kind:      eventstream.KindLog,
		Level:     eventstream.LevelError,
		Timestamp: time.Now(),
		Message:   "unhandled failure reached guardian, stopping",
		Path:      c.path.Format(),
		Err:       cause,
	})
	_ = c.selfRef().tellSystem(Terminate{})
}

// EventStream returns the system's event bus.
func (s *system) EventStream() *eventstream.Stream { return s.stream }

// DeadLetters returns the system's dead letter registry.
func (s *system) DeadLetters() *deadletter.Registry { return s.deadLetters }

// Authorities returns the remote authority manager.
func (s *system) Authorities() *authority.Manager { return s.authorities }

// Scheduler returns the system's scheduler.
func (s *system) Scheduler() *scheduler.Scheduler { return s.sched }

// TickFeed returns the feed backing the scheduler, so a host can wire a
// TickDriver to it (New deliberately leaves driver selection to the
// caller; see spec.md §6's tick_driver_config).
func (s *system) TickFeed() *scheduler.TickFeed { return s.tickFeed }

// Extensions returns the typed extension registry.
func (s *system) Extensions() *extension.Registry { return s.extensions }

// Asks returns the ask-future registry.
func (s *system) Asks() *ask.Registry { return s.asks }

// askRegistry implements refSystem, letting Ref.Ask register and settle
// futures without the actor package's Ref type importing system directly.
func (s *system) askRegistry() *ask.Registry { return s.asks }

// scheduleAskTimeout implements refSystem: it arms a one-shot scheduler
// command that fails the future if no reply (or earlier failure) has
// settled it by the time the command fires. If the scheduler itself
// cannot accept the command (e.g. shutting down), the future is failed
// immediately with FailureSchedulerUnavailable rather than left pending
// forever.
func (s *system) scheduleAskTimeout(id uint64, timeout time.Duration) {
	cmd := func() { s.asks.Fail(id, ask.FailureTimeout) }
	if _, err := s.sched.ScheduleOnce(timeout, cmd); err != nil {
		s.asks.Fail(id, ask.FailureSchedulerUnavailable)
	}
}

// CellInfo is a read-only snapshot of one cell's identity and runtime
// state, used by diagnostic surfaces (the debug HTTP server, the terminal
// dashboard) that must not reach into actor internals directly.
type CellInfo struct {
	Pid        Pid
	Path       string
	Lifecycle  LifecycleState
	UserLen    int
	SystemLen  int
	ChildCount int
}

// Cells returns a snapshot of every live cell in the system.
func (s *system) Cells() []CellInfo {
	s.mu.RLock()
	all := make([]*cell, 0, len(s.cells))
	for _, c := range s.cells {
		all = append(all, c)
	}
	s.mu.RUnlock()

	infos := make([]CellInfo, 0, len(all))
	for _, c := range all {
		c.mu.Lock()
		children := len(c.children)
		c.mu.Unlock()
		infos = append(infos, CellInfo{
			Pid:        c.pid,
			Path:       c.path.Format(),
			Lifecycle:  c.Lifecycle(),
			UserLen:    c.mb.UserLen(),
			SystemLen:  c.mb.SystemLen(),
			ChildCount: children,
		})
	}
	return infos
}

// CellInfoFor returns the snapshot for a single pid, if it is still live.
func (s *system) CellInfoFor(pid Pid) (CellInfo, bool) {
	c := s.cellFor(pid)
	if c == nil {
		return CellInfo{}, false
	}
	c.mu.Lock()
	children := len(c.children)
	c.mu.Unlock()
	return CellInfo{
		Pid:        c.pid,
		Path:       c.path.Format(),
		Lifecycle:  c.Lifecycle(),
		UserLen:    c.mb.UserLen(),
		SystemLen:  c.mb.SystemLen(),
		ChildCount: children,
	}, true
}

// DumpAllMetrics publishes a DispatcherDump event for every live cell, the
// bulk form of (*cell).PublishDumpMetrics. Nothing in this repository
// calls it on a schedule; the terminal dashboard reads Cells() instead.
func (s *system) DumpAllMetrics() {
	s.mu.RLock()
	all := make([]*cell, 0, len(s.cells))
	for _, c := range s.cells {
		all = append(all, c)
	}
	s.mu.RUnlock()
	for _, c := range all {
		c.PublishDumpMetrics()
	}
}

// Guardian returns the user guardian's Ref, the conventional spawn point
// for application actors.
func (s *system) Guardian() Ref {
	return s.userGuardian.selfRef()
}

// Shutdown stops the scheduler and requests the guardians terminate.
// Does not block for children to finish stopping; callers that need that
// should watch the guardian refs.
func (s *System) Shutdown() {
	s.mu.Lock()
	s.shuttingDown = true
	s.mu.Unlock()
	s.sched.Stop()
	_ = s.userGuardian.selfRef().tellSystem(Terminate{})
	_ = s.systemGuardian.selfRef().tellSystem(Terminate{})
}

// guardianActor hosts no behavior of its own beyond the default
// supervisor strategy; children crash up to it, and an unhandled
// escalation stops the guardian's entire subtree.
type guardianActor struct {
	Base
	label string
}

func (g *guardianActor) Receive(Context, Envelope) error { return nil }

func (g *guardianActor) SupervisorStrategy() supervision.Strategy {
	return supervision.Strategy{Kind: supervision.OneForOne, Decider: func(error) supervision.Directive {
		return supervision.Stop
	}, MaxRetries: -1}
}
