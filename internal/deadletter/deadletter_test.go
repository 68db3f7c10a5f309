package deadletter

import (
	"testing"
	"time"

	"github.com/webitel/fraktor-go/internal/eventstream"
)

func TestRecordSendErrorRetainsOldestFirst(t *testing.T) {
	r := New(2, nil)
	now := time.Now()
	r.RecordSendError("/user/a", "one", NoRecipient, "", now)
	r.RecordSendError("/user/b", "two", MailboxFull, "", now.Add(time.Millisecond))

	entries := r.Entries()
	if len(entries) != 2 || entries[0].Message != "one" || entries[1].Message != "two" {
		t.Fatalf("expected [one two], got %v", entries)
	}
}

func TestRecordSendErrorDropsOldestOnOverflow(t *testing.T) {
	r := New(2, nil)
	now := time.Now()
	r.RecordSendError("/user/a", "one", NoRecipient, "", now)
	r.RecordSendError("/user/b", "two", MailboxFull, "", now)
	r.RecordSendError("/user/c", "three", ActorStopped, "", now)

	entries := r.Entries()
	if len(entries) != 2 || entries[0].Message != "two" || entries[1].Message != "three" {
		t.Fatalf("expected [two three] after overflow, got %v", entries)
	}
}

func TestRecordSendErrorPublishesDeadLetterAndLogEvents(t *testing.T) {
	stream := eventstream.New(8)
	r := New(4, stream)
	r.RecordSendError("/user/a", "payload", MailboxFull, "", time.Now())

	buffered := stream.Buffered()
	if len(buffered) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(buffered))
	}
	if buffered[0].Kind != eventstream.KindDeadLetter || buffered[0].Reason != "mailbox_full" {
		t.Fatalf("expected dead letter event with reason mailbox_full, got %+v", buffered[0])
	}
	if buffered[1].Kind != eventstream.KindLog || buffered[1].Level != eventstream.LevelWarn {
		t.Fatalf("expected a warn log event, got %+v", buffered[1])
	}
}

func TestRecordSendErrorWithNilStreamDoesNotPanic(t *testing.T) {
	r := New(1, nil)
	r.RecordSendError("/user/a", "payload", Custom, "boom", time.Now())
	if len(r.Entries()) != 1 {
		t.Fatalf("expected entry to still be recorded without a stream")
	}
}

func TestReasonString(t *testing.T) {
	cases := map[Reason]string{
		NoRecipient:   "no_recipient",
		MailboxFull:   "mailbox_full",
		MailboxClosed: "mailbox_closed",
		ActorStopped:  "actor_stopped",
		Suspended:     "suspended",
		Custom:        "custom",
		Reason(99):    "unknown",
	}
	for reason, want := range cases {
		if got := reason.String(); got != want {
			t.Fatalf("Reason(%d).String() = %q, want %q", reason, got, want)
		}
	}
}
