package actor

import (
	"errors"
	"testing"
	"time"

	"github.com/webitel/fraktor-go/internal/actor/supervision"
	"github.com/webitel/fraktor-go/internal/ask"
	"github.com/webitel/fraktor-go/internal/mailbox"
	"github.com/webitel/fraktor-go/internal/scheduler"
)

// pollUntil polls cond every tick until it returns true or deadline
// elapses, yielding the goroutine in between so the actor's own
// dispatcher-bound goroutine gets a chance to run.
func pollUntil(t *testing.T, deadline time.Duration, cond func() bool) bool {
	t.Helper()
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

type pingActor struct {
	Base
	replies *[]string
}

func (p *pingActor) Receive(ctx Context, env Envelope) error {
	if s, ok := As[string](env); ok {
		*p.replies = append(*p.replies, s)
		ctx.Sender().Tell("pong:"+s, ctx.Self())
	}
	return nil
}

func TestSpawnAndTellDeliversToReceive(t *testing.T) {
	sys, err := New(DefaultSystemConfig("test"))
	if err != nil {
		t.Fatal(err)
	}

	var received []string
	ref, err := sys.ActorOf(Props{New: func() Actor { return &pingActor{replies: &received} }})
	if err != nil {
		t.Fatal(err)
	}

	var replies []string
	recorder, err := sys.ActorOf(Props{New: func() Actor {
		return &funcActor{receive: func(ctx Context, env Envelope) error {
			if s, ok := As[string](env); ok {
				replies = append(replies, s)
			}
			return nil
		}}
	}})
	if err != nil {
		t.Fatal(err)
	}

	ref.Tell("hello", recorder)

	if !pollUntil(t, time.Second, func() bool { return len(replies) == 1 }) {
		t.Fatalf("expected a reply, got %v", replies)
	}
	if replies[0] != "pong:hello" {
		t.Fatalf("expected pong:hello, got %v", replies[0])
	}
}

func TestDuplicateNameUnderSameParentIsRejected(t *testing.T) {
	sys, err := New(DefaultSystemConfig("test"))
	if err != nil {
		t.Fatal(err)
	}

	props := FromFunc(func(Context, Envelope) error { return nil }).WithName("worker")
	if _, err := sys.ActorOf(props); err != nil {
		t.Fatal(err)
	}

	_, err = sys.ActorOf(props)
	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) || !errors.Is(spawnErr, ErrNameInUse) {
		t.Fatalf("expected SpawnError wrapping ErrNameInUse, got %v", err)
	}
}

func TestWatchedTargetIsRemovedFromRegistryOnStop(t *testing.T) {
	sys, err := New(DefaultSystemConfig("test"))
	if err != nil {
		t.Fatal(err)
	}

	target, err := sys.ActorOf(FromFunc(func(Context, Envelope) error { return nil }))
	if err != nil {
		t.Fatal(err)
	}

	var terminated bool
	watcher, err := sys.ActorOf(FromFunc(func(ctx Context, env Envelope) error {
		if _, ok := As[Terminated](env); ok {
			terminated = true
		}
		return nil
	}))
	if err != nil {
		t.Fatal(err)
	}

	if err := target.tellSystem(Watch{Watcher: watcher}); err != nil {
		t.Fatal(err)
	}
	if err := target.tellSystem(Terminate{}); err != nil {
		t.Fatal(err)
	}

	// Terminated reaches the watcher's cell as a SystemMessage handled by
	// InvokeSystem; it is never passed to the watcher's Receive, so
	// terminated stays false. This test checks only that the stopped
	// target leaves the registry.
	if !pollUntil(t, time.Second, func() bool { return sys.cellFor(target.Pid()) == nil }) {
		t.Fatal("expected target cell to be removed from the registry after stop")
	}
	_ = terminated
}

type restartCountingActor struct {
	Base
	starts *int
}

func (a *restartCountingActor) PreStart(Context) error {
	*a.starts++
	return nil
}

func (a *restartCountingActor) PostRestart(ctx Context, cause error) error {
	return DefaultPostRestart(a, ctx, cause)
}

func (a *restartCountingActor) Receive(ctx Context, env Envelope) error {
	if _, ok := As[string](env); ok {
		return errors.New("boom")
	}
	return nil
}

func (a *restartCountingActor) SupervisorStrategy() supervision.Strategy {
	return supervision.Strategy{Kind: supervision.OneForOne, Decider: func(error) supervision.Directive {
		return supervision.Restart
	}, MaxRetries: -1}
}

func TestSupervisionRestartsFailedChild(t *testing.T) {
	sys, err := New(DefaultSystemConfig("test"))
	if err != nil {
		t.Fatal(err)
	}

	starts := 0
	var childRef Ref
	parent, err := sys.ActorOf(FromFunc(func(ctx Context, env Envelope) error {
		if _, ok := As[string](env); ok {
			ref, spawnErr := ctx.Spawn(Props{New: func() Actor {
				return &restartCountingActor{starts: &starts}
			}}, "child")
			if spawnErr == nil {
				childRef = ref
			}
		}
		return nil
	}).WithStrategy(supervision.Strategy{Kind: supervision.OneForOne, Decider: func(error) supervision.Directive {
		return supervision.Restart
	}, MaxRetries: -1}))
	if err != nil {
		t.Fatal(err)
	}

	parent.Tell("spawn", Ref{})
	if !pollUntil(t, time.Second, func() bool { return !childRef.IsNobody() }) {
		t.Fatal("expected child to be spawned")
	}
	if !pollUntil(t, time.Second, func() bool { return starts == 1 }) {
		t.Fatal("expected one PreStart from initial spawn")
	}

	childRef.Tell("trigger failure", Ref{})

	if !pollUntil(t, 2*time.Second, func() bool { return starts >= 2 }) {
		t.Fatalf("expected a second PreStart from the restart, got %d", starts)
	}
}

func TestAskCompletesFutureViaCtxReply(t *testing.T) {
	sys, err := New(DefaultSystemConfig("test"))
	if err != nil {
		t.Fatal(err)
	}

	target, err := sys.ActorOf(FromFunc(func(ctx Context, env Envelope) error {
		if s, ok := As[string](env); ok {
			ctx.Reply("echo:" + s)
		}
		return nil
	}))
	if err != nil {
		t.Fatal(err)
	}

	future := target.Ask("hello", time.Second)
	value, askErr := future.Wait()
	if askErr != nil {
		t.Fatalf("expected no error, got %v", askErr)
	}
	if value != "echo:hello" {
		t.Fatalf("expected echo:hello, got %v", value)
	}
}

func TestAskTimesOutWhenNoReply(t *testing.T) {
	sys, err := New(DefaultSystemConfig("test"))
	if err != nil {
		t.Fatal(err)
	}

	target, err := sys.ActorOf(FromFunc(func(Context, Envelope) error {
		return nil // never replies
	}))
	if err != nil {
		t.Fatal(err)
	}

	// New wires no tick driver, so drive the scheduler here for the
	// timeout to fire.
	period := sys.cfg.SchedulerTickPeriod
	driver := scheduler.NewAutoDriver(sys.TickFeed(), period)
	driver.Enable()
	defer driver.Disable()
	go sys.Scheduler().RunLoop(period)
	defer sys.Scheduler().Stop()

	future := target.Ask("hello", 20*time.Millisecond)
	_, askErr := future.Wait()
	failed, ok := askErr.(*ask.AskFailed)
	if !ok || failed.Kind != ask.FailureTimeout {
		t.Fatalf("expected AskFailed{Timeout}, got %v", askErr)
	}
}

func TestAskAgainstNobodyFailsImmediately(t *testing.T) {
	future := Nobody().Ask("hello", time.Second)
	_, askErr := future.Wait()
	failed, ok := askErr.(*ask.AskFailed)
	if !ok || failed.Kind != ask.FailureTargetStopped {
		t.Fatalf("expected AskFailed{TargetStopped}, got %v", askErr)
	}
}

func TestStartTimerSameKeyCancelsPrior(t *testing.T) {
	sys, err := New(DefaultSystemConfig("test"))
	if err != nil {
		t.Fatal(err)
	}

	var fired []string
	target, err := sys.ActorOf(FromFunc(func(ctx Context, env Envelope) error {
		if s, ok := As[string](env); ok {
			if s == "arm" {
				ctx.StartTimer("heartbeat", 30*time.Millisecond, "fired")
			} else {
				fired = append(fired, s)
			}
		}
		return nil
	}))
	if err != nil {
		t.Fatal(err)
	}

	target.Tell("arm", Ref{})
	if !pollUntil(t, time.Second, func() bool {
		return sys.IsTimerActive(actorTimerKey(target.Pid(), "heartbeat"))
	}) {
		t.Fatal("expected the heartbeat timer to be registered")
	}

	target.Tell("arm", Ref{}) // restarts the same logical timer
	time.Sleep(60 * time.Millisecond)

	if len(fired) > 1 {
		t.Fatalf("expected at most one fire from the restarted timer, got %v", fired)
	}
}

func TestFinishStopCancelsOutstandingTimers(t *testing.T) {
	sys, err := New(DefaultSystemConfig("test"))
	if err != nil {
		t.Fatal(err)
	}

	target, err := sys.ActorOf(FromFunc(func(ctx Context, env Envelope) error {
		if _, ok := As[string](env); ok {
			ctx.StartTimer("never-fires", time.Hour, "too-late")
		}
		return nil
	}))
	if err != nil {
		t.Fatal(err)
	}

	target.Tell("arm", Ref{})
	key := actorTimerKey(target.Pid(), "never-fires")
	if !pollUntil(t, time.Second, func() bool { return sys.IsTimerActive(key) }) {
		t.Fatal("expected the timer to be registered before stop")
	}

	if err := target.tellSystem(Terminate{}); err != nil {
		t.Fatal(err)
	}
	if !pollUntil(t, time.Second, func() bool { return !sys.IsTimerActive(key) }) {
		t.Fatal("expected the timer to be cancelled once the actor stopped")
	}
}

func TestMailboxFullRoutesToDeadLetters(t *testing.T) {
	sys, err := New(DefaultSystemConfig("test"))
	if err != nil {
		t.Fatal(err)
	}

	blocked := make(chan struct{})
	target, err := sys.ActorOf(FromFunc(func(Context, Envelope) error {
		<-blocked
		return nil
	}).WithMailbox(mailbox.Config{Capacity: mailbox.Bounded(1), Overflow: mailbox.DropNewest, Throughput: 1}))
	if err != nil {
		t.Fatal(err)
	}
	defer close(blocked)

	target.Tell("first", Ref{})  // consumed by the blocked receive
	target.Tell("second", Ref{}) // fills the one-slot mailbox
	target.Tell("third", Ref{})  // must overflow to dead letters

	if !pollUntil(t, time.Second, func() bool { return len(sys.DeadLetters().Entries()) >= 1 }) {
		t.Fatalf("expected at least one dead letter, got %d", len(sys.DeadLetters().Entries()))
	}
}
