package ask

import "testing"

func TestRegistryCompleteDrainsAsReady(t *testing.T) {
	r := NewRegistry()
	f := r.New()

	if r.Pending() != 1 {
		t.Fatalf("expected 1 pending, got %d", r.Pending())
	}

	r.Complete(f.ID(), "answer")

	if !f.Ready() {
		t.Fatal("expected future to be ready after Complete")
	}
	value, err := f.Wait()
	if err != nil || value != "answer" {
		t.Fatalf("expected (answer, nil), got (%v, %v)", value, err)
	}

	drained := r.DrainReadyAskFutures()
	if len(drained) != 1 || drained[0].ID() != f.ID() {
		t.Fatalf("expected the completed future drained, got %v", drained)
	}
	if r.Pending() != 0 {
		t.Fatal("expected registry empty after drain")
	}
}

func TestFutureFailSettlesWithAskFailed(t *testing.T) {
	r := NewRegistry()
	f := r.New()
	r.Fail(f.ID(), FailureTimeout)

	_, err := f.Wait()
	failed, ok := err.(*AskFailed)
	if !ok || failed.Kind != FailureTimeout {
		t.Fatalf("expected AskFailed{Timeout}, got %v", err)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	f := newFuture(1)
	f.Complete("first")
	f.Complete("second")

	value, _ := f.Wait()
	if value != "first" {
		t.Fatalf("expected first settle to win, got %v", value)
	}
}

func TestFailedReturnsAlreadySettledFuture(t *testing.T) {
	f := Failed(FailureTargetStopped)
	if !f.Ready() {
		t.Fatal("expected Failed's future to already be settled")
	}
	_, err := f.Wait()
	failed, ok := err.(*AskFailed)
	if !ok || failed.Kind != FailureTargetStopped {
		t.Fatalf("expected AskFailed{TargetStopped}, got %v", err)
	}
}
