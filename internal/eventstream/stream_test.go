package eventstream

import "testing"

func TestSubscribeReplaysBufferedEvents(t *testing.T) {
	s := New(4)
	s.Publish(Event{Kind: KindLog, Message: "one"})
	s.Publish(Event{Kind: KindLog, Message: "two"})

	var received []string
	s.Subscribe(SubscriberFunc(func(e Event) { received = append(received, e.Message) }))

	if len(received) != 2 || received[0] != "one" || received[1] != "two" {
		t.Fatalf("expected replay of [one two], got %v", received)
	}
}

func TestRingBufferDropsOldestOnOverflow(t *testing.T) {
	s := New(2)
	s.Publish(Event{Kind: KindLog, Message: "a"})
	s.Publish(Event{Kind: KindLog, Message: "b"})
	s.Publish(Event{Kind: KindLog, Message: "c"})

	buffered := s.Buffered()
	if len(buffered) != 2 || buffered[0].Message != "b" || buffered[1].Message != "c" {
		t.Fatalf("expected [b c] after overflow, got %v", buffered)
	}
}

func TestPublishDoesNotDeadlockWhenSubscriberPublishes(t *testing.T) {
	s := New(8)
	done := make(chan struct{})
	s.Subscribe(SubscriberFunc(func(e Event) {
		if e.Message == "trigger" {
			s.Publish(Event{Kind: KindLog, Message: "nested"})
			close(done)
		}
	}))

	s.Publish(Event{Kind: KindLog, Message: "trigger"})

	select {
	case <-done:
	default:
		t.Fatal("nested publish from within OnEvent should not deadlock")
	}
}

func TestUnsubscribeStopsFutureDelivery(t *testing.T) {
	s := New(8)
	count := 0
	id := s.Subscribe(SubscriberFunc(func(Event) { count++ }))
	s.Publish(Event{Kind: KindLog})
	s.Unsubscribe(id)
	s.Publish(Event{Kind: KindLog})

	if count != 1 {
		t.Fatalf("expected exactly 1 delivery before unsubscribe, got %d", count)
	}
}
