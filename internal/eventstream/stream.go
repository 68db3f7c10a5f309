package eventstream

import (
	"sync"
)

// DefaultCapacity is the ring buffer size used when a Stream is
// constructed with capacity <= 0.
const DefaultCapacity = 256

// Stream is the runtime-wide event bus. publish and subscribe both
// follow the same two-phase shape: mutate state and take a snapshot
// while holding the lock, then release the lock before doing anything
// that calls back into subscriber code. This is the property that lets
// a subscriber publish a new event, or touch the dead-letter registry
// (which itself publishes), from inside its own OnEvent callback without
// deadlocking.
type Stream struct {
	mu          sync.Mutex
	ring        []Event
	ringStart   int // index of the oldest entry
	ringLen     int
	capacity    int
	subscribers map[SubscriptionID]Subscriber
	nextID      SubscriptionID
}

// New constructs a Stream with the given ring capacity (DefaultCapacity
// if <= 0).
func New(capacity int) *Stream {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Stream{
		ring:        make([]Event, capacity),
		capacity:    capacity,
		subscribers: make(map[SubscriptionID]Subscriber),
	}
}

// Publish appends event to the ring (evicting the oldest on overflow),
// snapshots current subscribers, releases the lock, then invokes each
// subscriber's OnEvent. No subscriber ever observes the stream's lock
// held during its own callback.
func (s *Stream) Publish(event Event) {
	s.mu.Lock()
	s.appendLocked(event)
	snapshot := s.snapshotSubscribersLocked()
	s.mu.Unlock()

	for _, sub := range snapshot {
		sub.OnEvent(event)
	}
}

func (s *Stream) appendLocked(event Event) {
	if s.ringLen < s.capacity {
		idx := (s.ringStart + s.ringLen) % s.capacity
		s.ring[idx] = event
		s.ringLen++
		return
	}
	// Full: overwrite the oldest slot and advance start, dropping it.
	s.ring[s.ringStart] = event
	s.ringStart = (s.ringStart + 1) % s.capacity
}

func (s *Stream) snapshotSubscribersLocked() []Subscriber {
	out := make([]Subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		out = append(out, sub)
	}
	return out
}

// Subscribe registers sub, snapshots the currently buffered events under
// the lock, releases it, then replays the snapshot to sub in original
// order (oldest first) before returning.
func (s *Stream) Subscribe(sub Subscriber) SubscriptionID {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subscribers[id] = sub
	snapshot := s.bufferedLocked()
	s.mu.Unlock()

	for _, event := range snapshot {
		sub.OnEvent(event)
	}
	return id
}

func (s *Stream) bufferedLocked() []Event {
	out := make([]Event, s.ringLen)
	for i := 0; i < s.ringLen; i++ {
		out[i] = s.ring[(s.ringStart+i)%s.capacity]
	}
	return out
}

// Unsubscribe removes sub. An OnEvent call already in flight for it may
// still complete; this only prevents future publishes from reaching it.
func (s *Stream) Unsubscribe(id SubscriptionID) {
	s.mu.Lock()
	delete(s.subscribers, id)
	s.mu.Unlock()
}

// Buffered returns a copy of the currently retained ring contents,
// oldest first.
func (s *Stream) Buffered() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bufferedLocked()
}
