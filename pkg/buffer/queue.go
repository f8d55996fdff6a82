// Package buffer holds the FIFO that decouples capture from disk writes.
package buffer

import "sync"

// Queue is an unbounded FIFO safe for concurrent use. Push never blocks and
// never rejects; memory grows with the backlog, which HighWater makes visible.
type Queue[T any] struct {
	mu        sync.Mutex
	items     []T
	head      int
	highWater int
}

func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	if n := len(q.items) - q.head; n > q.highWater {
		q.highWater = n
	}
	q.mu.Unlock()
}

// DrainUpTo removes and returns at most n items in push order.
func (q *Queue[T]) DrainUpTo(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	avail := len(q.items) - q.head
	if n > avail {
		n = avail
	}
	if n <= 0 {
		return nil
	}

	out := make([]T, n)
	copy(out, q.items[q.head:q.head+n])
	clear(q.items[q.head : q.head+n])
	q.head += n

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head > len(q.items)/2:
		m := copy(q.items, q.items[q.head:])
		clear(q.items[m:])
		q.items = q.items[:m]
		q.head = 0
	}

	return out
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// HighWater returns the largest length the queue has reached.
func (q *Queue[T]) HighWater() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.highWater
}
