// Package memory provides queue implementations for local development.
// Two lanes are created at startup, one for scraping and one for
// analysis, so a saturated scrape lane cannot starve cascade work.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue[T any] struct {
	ch      chan T
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue[T any](capacity int) *Queue[T] {
	return &Queue[T]{
		ch: make(chan T, capacity),
	}
}

// Enqueue pushes a task into the queue or returns if the context ends.
func (q *Queue[T]) Enqueue(ctx context.Context, task T) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- task:
		return nil
	}
}

// Dequeue pops the next task, respecting context cancellation.
func (q *Queue[T]) Dequeue(ctx context.Context) (T, error) {
	var zero T
	select {
	case <-ctx.Done():
		return zero, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case task, ok := <-q.ch:
		if !ok {
			return zero, errors.New("queue closed")
		}
		return task, nil
	}
}

// Close closes the underlying channel for shutdown.
func (q *Queue[T]) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
