package actor

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/fraktor-go/internal/scheduler"
)

// timerRegistry tracks every live scheduler.Handle a TimerScheduler has
// created, keyed by the opaque string key returned to callers, so
// CancelTimer/Cancel can look a handle up without the caller keeping its
// own bookkeeping.
type timerRegistry struct {
	mu      sync.Mutex
	handles map[string]*scheduler.Handle
	owners  map[Pid]map[string]struct{}
}

func newTimerRegistry() *timerRegistry {
	return &timerRegistry{
		handles: make(map[string]*scheduler.Handle),
		owners:  make(map[Pid]map[string]struct{}),
	}
}

func (r *timerRegistry) put(owner Pid, key string, h *scheduler.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[key] = h
	if r.owners[owner] == nil {
		r.owners[owner] = make(map[string]struct{})
	}
	r.owners[owner][key] = struct{}{}
}

func (r *timerRegistry) cancel(key string) {
	r.mu.Lock()
	h, ok := r.handles[key]
	delete(r.handles, key)
	r.mu.Unlock()
	if ok {
		h.Cancel()
	}
}

func (r *timerRegistry) cancelAll(owner Pid) {
	r.mu.Lock()
	keys := r.owners[owner]
	delete(r.owners, owner)
	var handles []*scheduler.Handle
	for key := range keys {
		if h, ok := r.handles[key]; ok {
			handles = append(handles, h)
			delete(r.handles, key)
		}
	}
	r.mu.Unlock()
	for _, h := range handles {
		h.Cancel()
	}
}

func (r *timerRegistry) isActive(key string) bool {
	r.mu.Lock()
	h, ok := r.handles[key]
	r.mu.Unlock()
	return ok && !h.Completed() && !h.Cancelled()
}

// actorTimerKey scopes a caller-supplied logical key to owner, so the
// same key string used by two different actors never collides in the
// shared timerRegistry.
func actorTimerKey(owner Pid, key string) string {
	return fmt.Sprintf("%d/%s", owner.Value, key)
}

// startTimer schedules a single SendMessage(msg) delivery to owner after
// d, keyed per-owner by key: an already-active timer under the same key
// is canceled first, so at most one timer per (owner, key) is ever live.
// Returns key unchanged; CancelTimer re-derives the same scoping.
func (s *system) startTimer(owner *cell, key string, d time.Duration, msg any) string {
	scoped := actorTimerKey(owner.pid, key)
	s.timers.cancel(scoped)
	ref := owner.selfRef()
	cmd := scheduler.SendMessage(ref, msg, Ref{})
	h, err := s.sched.ScheduleOnce(d, cmd)
	if err != nil {
		return key
	}
	s.timers.put(owner.pid, scoped, h)
	return key
}

func (s *system) cancelActorTimer(owner Pid, key string) {
	s.timers.cancel(actorTimerKey(owner, key))
}

// StartTimerWithFixedDelay schedules repeated, non-compensating
// deliveries of msg to target: the first fire is initial after the call,
// and each later fire is delay after the previous one completed.
func (s *system) StartTimerWithFixedDelay(target Ref, initial, delay time.Duration, msg any) (string, error) {
	key := uuid.NewString()
	h, err := s.sched.ScheduleWithFixedDelay(initial, delay, scheduler.SendMessage(target, msg, Ref{}))
	if err != nil {
		return "", err
	}
	s.timers.put(target.Pid(), key, h)
	return key, nil
}

// StartTimerAtFixedRate schedules repeated, compensating deliveries:
// missed fires (from a stalled driver) are caught up rather than
// skipped.
func (s *system) StartTimerAtFixedRate(target Ref, initial, interval time.Duration, msg any) (string, error) {
	key := uuid.NewString()
	h, err := s.sched.ScheduleAtFixedRate(initial, interval, scheduler.SendMessage(target, msg, Ref{}))
	if err != nil {
		return "", err
	}
	s.timers.put(target.Pid(), key, h)
	return key, nil
}

// StartSingleTimer schedules exactly one delivery of msg to target after
// delay.
func (s *system) StartSingleTimer(target Ref, delay time.Duration, msg any) (string, error) {
	key := uuid.NewString()
	h, err := s.sched.ScheduleOnce(delay, scheduler.SendMessage(target, msg, Ref{}))
	if err != nil {
		return "", err
	}
	s.timers.put(target.Pid(), key, h)
	return key, nil
}

func (s *system) IsTimerActive(key string) bool {
	return s.timers.isActive(key)
}

func (s *system) CancelTimer(key string) {
	s.timers.cancel(key)
}

func (s *system) CancelAllTimers(owner Ref) {
	s.timers.cancelAll(owner.Pid())
}
