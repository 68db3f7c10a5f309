// Package toolbox selects the concurrency primitives the rest of the
// runtime builds on. A hosted build (the default) backs every primitive
// with the standard library's threaded sync types. A tinygo build backs
// them with a cooperative critical-section spinlock suitable for a
// single-threaded embedded target. Callers never construct the primitives
// directly; they go through Toolbox so the same actor-core code compiles
// against either profile.
package toolbox

// Mutex is the minimal locking capability the runtime depends on.
type Mutex interface {
	Lock()
	Unlock()
}

// RWMutex adds reader/writer locking for read-mostly state such as the
// system state's cell map.
type RWMutex interface {
	Mutex
	RLock()
	RUnlock()
}

// Toolbox constructs the primitive families selected for the current
// build. Exactly one implementation exists per build (hosted or embedded);
// Default returns it.
type Toolbox interface {
	NewMutex() Mutex
	NewRWMutex() RWMutex
	// Blocking reports whether this profile supports a goroutine/thread
	// parking natively. When false, operations documented as potentially
	// blocking (mailbox Block overflow, ask-future Wait) must degrade to
	// returning a pending handle instead of parking the caller.
	Blocking() bool
}

// Default returns the Toolbox selected for this build.
func Default() Toolbox {
	return defaultToolbox
}
