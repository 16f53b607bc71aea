package queue

import "sync"

// Queue is a FIFO of received clock values. Enqueue is called
// concurrently by one handler goroutine per accepted connection;
// Dequeue and Len are called only by the event loop. Dequeue never
// blocks: the event loop polls once per tick.
type Queue struct {
	mu    sync.Mutex
	items []uint64
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends a received clock value.
func (q *Queue) Enqueue(v uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, v)
}

// Dequeue removes and returns the oldest value. The second return is
// false when the queue is empty.
func (q *Queue) Dequeue() (uint64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return 0, false
	}
	v := q.items[0]
	q.items = q.items[1:]
	return v, true
}

// Len returns the number of queued values.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
