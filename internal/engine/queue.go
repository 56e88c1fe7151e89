package engine

import (
	"sync"

	"github.com/roach88/foodstand/internal/store"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventTypeIntent is a user action run against the mirror.
	EventTypeIntent EventType = iota + 1
	// EventTypeRemote is a snapshot delivered by the remote ledger.
	EventTypeRemote
	// EventTypeRefresh re-invokes renderers without changing state.
	EventTypeRefresh
)

func (t EventType) String() string {
	switch t {
	case EventTypeIntent:
		return "intent"
	case EventTypeRemote:
		return "remote"
	case EventTypeRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Event is one unit of work for the Run loop.
type Event struct {
	Type   EventType
	Intent *Intent
	Change *store.Change

	// reply receives the outcome when the sender waits for it.
	reply chan result
}

type result struct {
	value any
	err   error
}

// fifo is a thread-safe unbounded FIFO queue.
//
// Any goroutine may enqueue (HTTP handlers, the subscription reader, the
// refresher) while one goroutine dequeues. The signal channel lets the
// consumer wait in a select alongside ctx.Done().
type fifo[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{} // buffered, size 1
}

func newFIFO[T any]() *fifo[T] {
	return &fifo[T]{
		items:  make([]T, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds v to the back of the queue. Returns false if the queue is
// closed.
func (q *fifo[T]) Enqueue(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, v)

	// Buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front item without blocking.
func (q *fifo[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	v := q.items[0]
	// Clear the slot so the backing array does not pin the item.
	q.items[0] = zero

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return v, true
}

// Wait returns a channel that signals when items may be available. It is
// closed when the queue is closed.
func (q *fifo[T]) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *fifo[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *fifo[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops further enqueues and wakes any waiter. Items already queued
// can still be dequeued.
func (q *fifo[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
