//go:build !tinygo

package toolbox

import (
	"testing"
	"time"
)

func TestDefaultToolboxIsBlocking(t *testing.T) {
	if !Default().Blocking() {
		t.Fatal("expected the hosted toolbox to report Blocking() true")
	}
}

func TestNewMutexExcludesConcurrentAccess(t *testing.T) {
	m := Default().NewMutex()
	m.Lock()
	unlocked := make(chan struct{})
	go func() {
		m.Lock()
		defer m.Unlock()
		close(unlocked)
	}()

	select {
	case <-unlocked:
		t.Fatal("second Lock succeeded while the first still held the mutex")
	default:
	}
	m.Unlock()
	<-unlocked
}

func TestNewRWMutexAllowsConcurrentReaders(t *testing.T) {
	rw := Default().NewRWMutex()
	rw.RLock()
	defer rw.RUnlock()

	done := make(chan struct{})
	go func() {
		rw.RLock()
		defer rw.RUnlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second RLock blocked behind the first reader")
	}
}
