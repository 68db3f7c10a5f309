// Package extension provides a typed registry system extensions attach
// themselves to: the forwarder, slogbridge, debugserver and controlplane
// packages each register under their own key and are resolved back out
// by key rather than the system threading a bespoke field through
// SystemState for every add-on.
package extension

import (
	"fmt"
	"sync"
)

// Extension is the lifecycle contract an add-on component implements.
// Start/Stop bracket the owning system's own lifecycle; an extension
// that only needs to read system state and never shut anything down may
// leave either as a no-op.
type Extension interface {
	ID() string
	Start() error
	Stop() error
}

// Registry is a typed extension lookup table. System owns one instance
// for the lifetime of the actor system.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]Extension
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Extension)}
}

// Register adds ext under its own ID. Returns an error if that ID is
// already registered.
func (r *Registry) Register(ext Extension) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[ext.ID()]; exists {
		return fmt.Errorf("extension %q already registered", ext.ID())
	}
	r.byID[ext.ID()] = ext
	return nil
}

// Get returns the extension registered under id, if any.
func (r *Registry) Get(id string) (Extension, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext, ok := r.byID[id]
	return ext, ok
}

// StartAll starts every registered extension, stopping already-started
// ones and returning the first error if any Start fails.
func (r *Registry) StartAll() error {
	r.mu.RLock()
	exts := make([]Extension, 0, len(r.byID))
	for _, ext := range r.byID {
		exts = append(exts, ext)
	}
	r.mu.RUnlock()

	started := make([]Extension, 0, len(exts))
	for _, ext := range exts {
		if err := ext.Start(); err != nil {
			for _, s := range started {
				_ = s.Stop()
			}
			return fmt.Errorf("starting extension %q: %w", ext.ID(), err)
		}
		started = append(started, ext)
	}
	return nil
}

// StopAll stops every registered extension, collecting but not
// short-circuiting on individual errors.
func (r *Registry) StopAll() error {
	r.mu.RLock()
	exts := make([]Extension, 0, len(r.byID))
	for _, ext := range r.byID {
		exts = append(exts, ext)
	}
	r.mu.RUnlock()

	var firstErr error
	for _, ext := range exts {
		if err := ext.Stop(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stopping extension %q: %w", ext.ID(), err)
		}
	}
	return firstErr
}
