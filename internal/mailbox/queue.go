package mailbox

import (
	"sync/atomic"
)

// systemQueue is a lock-free multi-producer single-consumer FIFO used for
// the mailbox's system-message side. Built on the Michael-Scott queue
// algorithm (CAS-linked nodes with a dummy head) rather than a
// mutex-guarded slice: a "pop everything, reverse, push back" approach
// (tempting for a stack-based free list) would reorder concurrent
// producers relative to each other, which violates the per-producer FIFO
// guarantee the system queue must uphold even under contention. No pack
// dependency offers this primitive; it is built directly on
// sync/atomic.Pointer.
type systemQueue struct {
	head atomic.Pointer[sysNode]
	tail atomic.Pointer[sysNode]
	size atomic.Int64
}

type sysNode struct {
	value SystemEnvelope
	next  atomic.Pointer[sysNode]
}

// SystemEnvelope wraps one system message; it carries no priority rank.
// The queue itself is pure FIFO, ordering is entirely producer-order, and
// the envelope carries the message so Dequeue need not index back into a
// side table.
type SystemEnvelope struct {
	Message any
}

func newSystemQueue() *systemQueue {
	q := &systemQueue{}
	dummy := &sysNode{}
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

// push appends msg. Safe for any number of concurrent callers.
func (q *systemQueue) push(msg any) {
	node := &sysNode{value: SystemEnvelope{Message: msg}}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if tail != q.tail.Load() {
			continue
		}
		if next == nil {
			if tail.next.CompareAndSwap(nil, node) {
				q.tail.CompareAndSwap(tail, node)
				q.size.Add(1)
				return
			}
		} else {
			// Tail lagging behind; help advance it before retrying.
			q.tail.CompareAndSwap(tail, next)
		}
	}
}

// pop removes and returns the oldest message, or ok=false if empty. Must
// only be called by the single consuming dispatcher.
func (q *systemQueue) pop() (any, bool) {
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()
		if head != q.head.Load() {
			continue
		}
		if head == tail {
			if next == nil {
				return nil, false
			}
			// Tail lagging behind a completed push; help advance it.
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		value := next.value
		if q.head.CompareAndSwap(head, next) {
			q.size.Add(-1)
			return value.Message, true
		}
	}
}

func (q *systemQueue) len() int {
	n := q.size.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}
