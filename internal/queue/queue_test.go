package queue

import (
	"sync"
	"testing"
)

func TestQueue_FIFO(t *testing.T) {
	q := New()
	for i := uint64(1); i <= 5; i++ {
		q.Enqueue(i)
	}
	if q.Len() != 5 {
		t.Fatalf("Expected length 5, got %d", q.Len())
	}
	for i := uint64(1); i <= 5; i++ {
		v, ok := q.Dequeue()
		if !ok {
			t.Fatalf("Dequeue %d: queue unexpectedly empty", i)
		}
		if v != i {
			t.Errorf("Expected %d, got %d", i, v)
		}
	}
	if _, ok := q.Dequeue(); ok {
		t.Error("Dequeue on empty queue should return false")
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := New()
	const producers = 8
	const perProducer = 200

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base uint64) {
			defer wg.Done()
			for i := uint64(0); i < perProducer; i++ {
				q.Enqueue(base*perProducer + i)
			}
		}(uint64(p))
	}
	wg.Wait()

	if q.Len() != producers*perProducer {
		t.Fatalf("Expected %d items, got %d", producers*perProducer, q.Len())
	}

	// Per-producer order must survive interleaving.
	last := make(map[uint64]uint64)
	for {
		v, ok := q.Dequeue()
		if !ok {
			break
		}
		producer := v / perProducer
		seq := v % perProducer
		if prev, seen := last[producer]; seen && seq <= prev {
			t.Fatalf("producer %d out of order: %d after %d", producer, seq, prev)
		}
		last[producer] = seq
	}
}
