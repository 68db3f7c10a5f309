package mailbox

import (
	"sync"
	"testing"
)

// TestSystemQueueConcurrentProducersPreserveFIFO guards against the
// "pop everything, reverse, push back" trap: each producer's messages
// must come out in the order that producer pushed them, even when many
// producers push concurrently.
func TestSystemQueueConcurrentProducersPreserveFIFO(t *testing.T) {
	const producers = 8
	const perProducer = 500

	q := newSystemQueue()
	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		p := p
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.push(producerMsg{producer: p, seq: i})
			}
		}()
	}
	wg.Wait()

	lastSeen := make([]int, producers)
	for i := range lastSeen {
		lastSeen[i] = -1
	}

	count := 0
	for {
		v, ok := q.pop()
		if !ok {
			break
		}
		m := v.(producerMsg)
		if m.seq != lastSeen[m.producer]+1 {
			t.Fatalf("producer %d out of order: got seq %d after %d", m.producer, m.seq, lastSeen[m.producer])
		}
		lastSeen[m.producer] = m.seq
		count++
	}

	if count != producers*perProducer {
		t.Fatalf("expected %d messages, got %d", producers*perProducer, count)
	}
}

type producerMsg struct {
	producer int
	seq      int
}
