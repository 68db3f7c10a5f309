package authority

import (
	"testing"
	"time"
)

func TestDeferSendThenSetConnectedFlushesInOrder(t *testing.T) {
	m := NewManager(DefaultConfig())
	now := time.Now()

	if !m.DeferSend("sys@host:1", "a", now) {
		t.Fatal("expected defer to succeed")
	}
	if !m.DeferSend("sys@host:1", "b", now) {
		t.Fatal("expected defer to succeed")
	}

	flushed := m.SetConnected("sys@host:1")
	if len(flushed) != 2 || flushed[0].Payload != "a" || flushed[1].Payload != "b" {
		t.Fatalf("expected [a b] flushed in order, got %v", flushed)
	}
	if m.DeferredCount("sys@host:1") != 0 {
		t.Fatal("expected deferred queue drained after flush")
	}
}

func TestSetQuarantineThenPollLiftsAfterDeadline(t *testing.T) {
	m := NewManager(DefaultConfig())
	now := time.Now()
	m.SetQuarantine("sys@host:2", now, 10*time.Millisecond)

	lifted := m.PollQuarantineExpiration(now)
	if len(lifted) != 0 {
		t.Fatal("should not lift before deadline")
	}

	lifted = m.PollQuarantineExpiration(now.Add(20 * time.Millisecond))
	if len(lifted) != 1 || lifted[0] != "sys@host:2" {
		t.Fatalf("expected sys@host:2 lifted, got %v", lifted)
	}
}

func TestDeferSendRespectsBound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDeferredPerAuthority = 2
	m := NewManager(cfg)
	now := time.Now()

	if !m.DeferSend("a", 1, now) || !m.DeferSend("a", 2, now) {
		t.Fatal("expected first two defers to succeed")
	}
	if m.DeferSend("a", 3, now) {
		t.Fatal("expected third defer to be rejected once bound is reached")
	}
}
