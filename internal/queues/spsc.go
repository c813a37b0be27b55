// Package queues implements the lock-free message queues the search workers
// use to exchange jobs: a bounded single-producer/single-consumer ring (SPSC)
// and a fan-in of per-producer rings with a single consumer (MPSC).
package queues

import (
	"sync/atomic"

	"github.com/gomlx/exceptions"
)

// DefaultCapacity is the per-ring capacity, sized so that the seeding load
// factor keeps every ring well below saturation.
const DefaultCapacity = 1024

// cacheLineSize is assumed to be 64 bytes, the common size on amd64 and arm64.
const cacheLineSize = 64

// SPSC is a fixed-capacity lock-free ring buffer for exactly one producer
// goroutine and one consumer goroutine.
//
// head is only written by the consumer, tail only by the producer. Both are
// padded on each side by a cache line so that neither counter shares a line
// with the other or with neighboring allocations.
type SPSC[T any] struct {
	_    [cacheLineSize]byte
	head atomic.Uint64
	_    [cacheLineSize - 8]byte
	tail atomic.Uint64
	_    [cacheLineSize - 8]byte

	mask uint64
	buf  []T
}

// NewSPSC returns a ring with the given capacity, which must be a power of two.
func NewSPSC[T any](capacity int) *SPSC[T] {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		exceptions.Panicf("SPSC capacity must be a positive power of two, got %d", capacity)
	}
	return &SPSC[T]{
		mask: uint64(capacity - 1),
		buf:  make([]T, capacity),
	}
}

// Cap returns the ring capacity.
func (q *SPSC[T]) Cap() int { return len(q.buf) }

// Push appends value to the ring. It returns false when the ring is full, in
// which case the caller decides whether to retry or drop. Producer only.
func (q *SPSC[T]) Push(value T) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() > q.mask {
		return false
	}
	q.buf[tail&q.mask] = value
	q.tail.Store(tail + 1)
	return true
}

// Front returns a pointer to the oldest element, or nil when the ring is
// empty. The pointer is only valid until the following Pop. Consumer only.
func (q *SPSC[T]) Front() *T {
	head := q.head.Load()
	if head == q.tail.Load() {
		return nil
	}
	return &q.buf[head&q.mask]
}

// Pop discards the oldest element. It must only be called after Front
// returned non-nil. Consumer only.
func (q *SPSC[T]) Pop() {
	head := q.head.Load()
	var zero T
	q.buf[head&q.mask] = zero
	q.head.Store(head + 1)
}

// Empty reports whether the ring currently holds no elements.
func (q *SPSC[T]) Empty() bool {
	return q.head.Load() == q.tail.Load()
}
