//go:build tinygo

package toolbox

import "sync/atomic"

// embeddedToolbox backs Mutex/RWMutex with an interrupt-safe critical
// section (a spinlock on an atomic flag) instead of OS-thread primitives.
// Selected for bare-metal/cooperative single-threaded targets where
// parking a thread is not an option; callers must treat would-block
// conditions as immediate failures rather than assume a scheduler will
// wake them.
type embeddedToolbox struct{}

var defaultToolbox Toolbox = embeddedToolbox{}

func (embeddedToolbox) NewMutex() Mutex { return &criticalSection{} }

func (embeddedToolbox) NewRWMutex() RWMutex { return &criticalSectionRW{} }

// Embedded targets have no blocking park; suspension points must degrade
// to pending-future handles instead.
func (embeddedToolbox) Blocking() bool { return false }

// criticalSection is a single-flag spinlock. On true single-threaded
// cooperative targets contention never happens in practice (interrupts are
// disabled for the duration of the section by the caller's ISR-safe code
// path); the CAS loop exists for the rare case of re-entrant scheduling.
type criticalSection struct {
	locked atomic.Bool
}

func (c *criticalSection) Lock() {
	for !c.locked.CompareAndSwap(false, true) {
	}
}

func (c *criticalSection) Unlock() {
	c.locked.Store(false)
}

// criticalSectionRW treats reads and writes identically: on a
// single-threaded target there is no concurrent-reader benefit to a real
// RWMutex, so both lock the same flag.
type criticalSectionRW struct {
	cs criticalSection
}

func (c *criticalSectionRW) Lock()    { c.cs.Lock() }
func (c *criticalSectionRW) Unlock()  { c.cs.Unlock() }
func (c *criticalSectionRW) RLock()   { c.cs.Lock() }
func (c *criticalSectionRW) RUnlock() { c.cs.Unlock() }
