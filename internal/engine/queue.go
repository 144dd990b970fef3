package engine

import (
	"context"
	"sync"
)

// queue is a thread-safe unbounded FIFO.
//
// Consumers either poll with TryDequeue or block in Dequeue. Each queue has
// exactly one consumer; the signal channel (buffered, size 1) coalesces
// wakeups for it. Close makes every later Dequeue on an empty queue return
// immediately, which is how blocked consumers are released at shutdown.
//
// A queue built with newDedupQueue rejects an item equal to one that is
// still waiting, so an automaton that reschedules itself unconditionally
// cannot grow its queue without bound.
type queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{}

	// pending holds the items currently waiting; nil for plain queues.
	pending map[any]struct{}
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{
		items:  make([]T, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

func newDedupQueue[T comparable]() *queue[T] {
	q := newQueue[T]()
	q.pending = make(map[any]struct{})
	return q
}

// Enqueue appends v. It returns false if the queue is closed or v is
// already waiting in a dedup queue.
func (q *queue[T]) Enqueue(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if q.pending != nil {
		if _, dup := q.pending[v]; dup {
			return false
		}
		q.pending[v] = struct{}{}
	}
	q.items = append(q.items, v)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front item without blocking.
func (q *queue[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

func (q *queue[T]) popLocked() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	// Clear the slot so the backing array does not pin what it referenced.
	q.items[0] = zero
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	if q.pending != nil {
		delete(q.pending, v)
	}
	return v, true
}

// Dequeue removes the front item, blocking until one is available. It
// returns ok=false once the queue is closed and empty, and ctx.Err() if ctx
// is done first.
func (q *queue[T]) Dequeue(ctx context.Context) (v T, ok bool, err error) {
	for {
		q.mu.Lock()
		v, ok = q.popLocked()
		closed := q.closed
		q.mu.Unlock()

		if ok || closed {
			return v, ok, nil
		}

		select {
		case <-ctx.Done():
			return v, false, ctx.Err()
		case <-q.signal:
		}
	}
}

// Wait returns a channel that fires when items may be available.
func (q *queue[T]) Wait() <-chan struct{} {
	return q.signal
}

func (q *queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further items and wakes the consumer.
func (q *queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Drain discards everything still queued and returns how many items there
// were.
func (q *queue[T]) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	clear(q.items)
	q.items = q.items[:0]
	if q.pending != nil {
		clear(q.pending)
	}
	return n
}
