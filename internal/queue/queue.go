// Package queue provides the bounded FIFO a server uses to hold requests
// until they are flushed.
package queue

import "errors"

// DefaultCapacity is the queue size used when none is configured.
const DefaultCapacity = 1000

var (
	// ErrFull is returned by Push on a queue at capacity.
	ErrFull = errors.New("queue is full")
	// ErrInvalidCapacity is returned for a non-positive capacity.
	ErrInvalidCapacity = errors.New("queue capacity must be positive")
)

// Queue is a bounded first-in first-out buffer.
type Queue[T any] struct {
	items    []T
	capacity int
}

// New creates an empty queue.
func New[T any](capacity int) (*Queue[T], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Queue[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
	}, nil
}

// Push appends v. It fails with ErrFull when the queue is at capacity.
func (q *Queue[T]) Push(v T) error {
	if len(q.items) >= q.capacity {
		return ErrFull
	}
	q.items = append(q.items, v)
	return nil
}

// Pop removes and returns the oldest item.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = make([]T, 0, q.capacity)
	}
	return v, true
}

// Drain removes and returns every item, oldest first.
func (q *Queue[T]) Drain() []T {
	out := q.items
	q.items = make([]T, 0, q.capacity)
	return out
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int { return len(q.items) }

// Cap returns the capacity.
func (q *Queue[T]) Cap() int { return q.capacity }

// Full reports whether Push would fail.
func (q *Queue[T]) Full() bool { return len(q.items) >= q.capacity }

// Empty reports whether nothing is queued.
func (q *Queue[T]) Empty() bool { return len(q.items) == 0 }
