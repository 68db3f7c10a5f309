package actor

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Provider resolves a canonical path string to the live Ref behind it,
// backed by an LRU cache so repeated resolution of a hot path (a
// frequently-addressed well-known actor) skips the children-map walk.
// The cache only ever holds local resolutions; remote paths are left to
// the authority/transport layer this package doesn't implement.
type Provider struct {
	system *system
	cache  *lru.Cache[string, Ref]
}

// NewProvider constructs a Provider with room for cacheSize resolved
// paths (a sane default is used if cacheSize <= 0).
func NewProvider(sys *System, cacheSize int) *Provider {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, _ := lru.New[string, Ref](cacheSize)
	return &Provider{system: sys.system, cache: cache}
}

// Resolve walks the guardian tree for raw (a canonical path string),
// consulting the cache first. A cached Ref that now points at a stopped
// cell is evicted and re-resolved rather than returned stale.
func (p *Provider) Resolve(raw string) (Ref, bool) {
	if ref, ok := p.cache.Get(raw); ok {
		if p.system.cellFor(ref.Pid()) != nil {
			return ref, true
		}
		p.cache.Remove(raw)
	}

	path, err := ParsePath(raw)
	if err != nil || !path.IsLocal() {
		return Ref{}, false
	}
	ref, ok := p.resolvePath(path)
	if ok {
		p.cache.Add(raw, ref)
	}
	return ref, ok
}

func (p *Provider) resolvePath(path Path) (Ref, bool) {
	if len(path.Segments) == 0 {
		return Ref{}, false
	}
	var current *cell
	switch path.Segments[0] {
	case "user":
		current = p.system.userGuardian
	case "system":
		current = p.system.systemGuardian
	default:
		return Ref{}, false
	}
	for _, seg := range path.Segments[1:] {
		current.mu.Lock()
		next, ok := current.children[seg]
		current.mu.Unlock()
		if !ok {
			return Ref{}, false
		}
		current = next
	}
	return current.selfRef(), true
}

// Invalidate drops raw from the cache, used when a caller knows a path
// has just been respawned under the same name.
func (p *Provider) Invalidate(raw string) {
	p.cache.Remove(raw)
}
