package extension

import (
	"errors"
	"testing"
)

type fakeExtension struct {
	id        string
	startErr  error
	stopErr   error
	started   bool
	stopped   bool
}

func (f *fakeExtension) ID() string { return f.id }
func (f *fakeExtension) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}
func (f *fakeExtension) Stop() error {
	f.stopped = true
	return f.stopErr
}

func TestRegisterRejectsDuplicateID(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeExtension{id: "a"}); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register(&fakeExtension{id: "a"}); err == nil {
		t.Fatal("expected error registering a duplicate ID")
	}
}

func TestGetReturnsRegisteredExtension(t *testing.T) {
	r := NewRegistry()
	ext := &fakeExtension{id: "a"}
	_ = r.Register(ext)

	got, ok := r.Get("a")
	if !ok || got != ext {
		t.Fatalf("expected to find registered extension a")
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatal("expected no extension registered under missing")
	}
}

func TestStartAllRollsBackAlreadyStartedOnFailure(t *testing.T) {
	r := NewRegistry()
	ok1 := &fakeExtension{id: "ok1"}
	ok2 := &fakeExtension{id: "ok2"}
	failing := &fakeExtension{id: "failing", startErr: errors.New("boom")}

	_ = r.Register(ok1)
	_ = r.Register(failing)
	_ = r.Register(ok2)

	err := r.StartAll()
	if err == nil {
		t.Fatal("expected StartAll to surface the failing extension's error")
	}

	for _, ext := range []*fakeExtension{ok1, ok2} {
		if ext.started && !ext.stopped {
			t.Fatalf("extension %s was started but never rolled back", ext.id)
		}
	}
}

func TestStopAllCollectsFirstErrorButStopsEveryExtension(t *testing.T) {
	r := NewRegistry()
	first := &fakeExtension{id: "first", stopErr: errors.New("first failure")}
	second := &fakeExtension{id: "second", stopErr: errors.New("second failure")}

	_ = r.Register(first)
	_ = r.Register(second)

	err := r.StopAll()
	if err == nil {
		t.Fatal("expected StopAll to return an error")
	}
	if !first.stopped || !second.stopped {
		t.Fatal("expected both extensions to be stopped despite errors")
	}
}
