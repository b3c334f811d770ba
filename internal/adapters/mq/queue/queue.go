// Package queue provides a bounded, non-blocking in-memory queue.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/turnlat/pkg/metrics"
)

const (
	defaultQueueCapacity = 10000
	defaultQueueName     = "events"
)

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds an item without blocking. It fails with ErrFull or
	// ErrClosed.
	Enqueue(ctx context.Context, item T) error

	// Dequeue returns a channel that yields items in FIFO order. The channel
	// is closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan T

	Len(ctx context.Context) int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue[T any] struct {
	items    chan T
	capacity int
	name     string

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	s := settings{capacity: defaultQueueCapacity, name: defaultQueueName}
	for _, opt := range opts {
		opt(&s)
	}

	q := &InMemoryQueue[T]{
		items:    make(chan T, s.capacity),
		capacity: s.capacity,
		name:     s.name,
	}

	metrics.UpdateQueueCapacity(q.name, q.capacity)
	metrics.UpdateQueueSize(q.name, 0)
	metrics.UpdateQueueUtilization(q.name, 0)
	return q
}

// Name returns the queue's metrics label.
func (q *InMemoryQueue[T]) Name() string { return q.name }

// Capacity returns the maximum number of buffered items.
func (q *InMemoryQueue[T]) Capacity() int { return q.capacity }

// Enqueue adds an item to the queue.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, item T) error {
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError(q.name, "closed")
		return ErrClosed
	}

	select {
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError(q.name, "context_cancelled")
		return ctx.Err()
	default:
	}

	select {
	case q.items <- item:
		metrics.RecordQueueEnqueue(q.name)
		q.observe()
		return nil
	default:
		metrics.RecordQueueEnqueueError(q.name, "queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that will receive items as they become available.
// Only one consumer should drain a queue when order matters.
func (q *InMemoryQueue[T]) Dequeue(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for item := range q.items {
			select {
			case out <- item:
				metrics.RecordQueueDequeue(q.name)
				q.observe()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued items.
func (q *InMemoryQueue[T]) Len(ctx context.Context) int {
	return q.observe()
}

func (q *InMemoryQueue[T]) observe() int {
	size := len(q.items)
	metrics.UpdateQueueSize(q.name, size)
	metrics.UpdateQueueUtilization(q.name, float64(size)/float64(q.capacity))
	return size
}

// Close stops accepting items. Buffered items are still delivered.
func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
