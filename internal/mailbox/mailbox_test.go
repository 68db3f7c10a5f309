package mailbox

import "testing"

func TestEnqueueUserDropNewestRejectsOnFull(t *testing.T) {
	m := New(Config{Capacity: Bounded(1), Overflow: DropNewest}, Hooks{})

	outcome, _, err := m.EnqueueUser("first")
	if err != nil || outcome != Enqueued {
		t.Fatalf("first enqueue: outcome=%v err=%v", outcome, err)
	}

	_, _, err = m.EnqueueUser("second")
	sendErr, ok := err.(*SendError)
	if !ok || sendErr.Reason != ReasonFull {
		t.Fatalf("expected ReasonFull, got %v", err)
	}
}

func TestEnqueueUserDropOldestEvictsHead(t *testing.T) {
	var dropped []any
	m := New(Config{Capacity: Bounded(2), Overflow: DropOldest}, Hooks{
		OnDrop: func(e DropEvent) { dropped = append(dropped, e.Message) },
	})

	for _, v := range []string{"a", "b", "c", "d"} {
		if _, _, err := m.EnqueueUser(v); err != nil {
			t.Fatalf("enqueue %v: %v", v, err)
		}
	}

	if len(dropped) != 2 || dropped[0] != "a" || dropped[1] != "b" {
		t.Fatalf("expected a,b dropped; got %v", dropped)
	}

	msg, ok := m.Dequeue()
	if !ok || msg.Value != "c" {
		t.Fatalf("expected c remaining first, got %v ok=%v", msg.Value, ok)
	}
}

func TestDequeuePrefersSystemOverUser(t *testing.T) {
	m := New(DefaultConfig(), Hooks{})

	if _, _, err := m.EnqueueUser(1); err != nil {
		t.Fatal(err)
	}
	if err := m.EnqueueSystem("stop"); err != nil {
		t.Fatal(err)
	}

	msg, ok := m.Dequeue()
	if !ok || !msg.System || msg.Value != "stop" {
		t.Fatalf("expected system message first, got %+v ok=%v", msg, ok)
	}
}

func TestSuspendBlocksUserDequeue(t *testing.T) {
	m := New(DefaultConfig(), Hooks{})
	if _, _, err := m.EnqueueUser("hello"); err != nil {
		t.Fatal(err)
	}
	m.Suspend()

	if _, ok := m.Dequeue(); ok {
		t.Fatal("expected no message while suspended")
	}

	m.Resume()
	msg, ok := m.Dequeue()
	if !ok || msg.Value != "hello" {
		t.Fatalf("expected hello after resume, got %+v ok=%v", msg, ok)
	}
}

func TestEnqueueUserRejectsWhileSuspended(t *testing.T) {
	m := New(DefaultConfig(), Hooks{})
	m.Suspend()

	_, _, err := m.EnqueueUser("x")
	sendErr, ok := err.(*SendError)
	if !ok || sendErr.Reason != ReasonSuspended {
		t.Fatalf("expected ReasonSuspended, got %v", err)
	}
}
