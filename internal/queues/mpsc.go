package queues

import (
	"runtime"
)

// MPSC is a many-producer/single-consumer fan-in: one dedicated SPSC ring per
// producer plus a consumer-private drain buffer. Producer i may only call
// Enqueue/TryEnqueue with its own index; Flush, Dequeue and Flushed belong to
// the single consumer.
//
// The drain buffer is popped in LIFO order on purpose: jobs that just arrived
// (in particular back-propagations completing a traversal) are handled before
// older selections, which keeps the number of in-flight paths bounded.
type MPSC[T any] struct {
	rings   []*SPSC[T]
	flushed []T
}

// NewMPSC returns a fan-in with one ring per producer, each with
// DefaultCapacity slots.
func NewMPSC[T any](producers int) *MPSC[T] {
	m := &MPSC[T]{rings: make([]*SPSC[T], producers)}
	for i := range m.rings {
		m.rings[i] = NewSPSC[T](DefaultCapacity)
	}
	return m
}

// Producers returns the number of producer slots.
func (m *MPSC[T]) Producers() int { return len(m.rings) }

// TryEnqueue pushes value into producer's dedicated ring. It returns false
// when that ring is full. Only the goroutine owning the producer slot may
// call this.
func (m *MPSC[T]) TryEnqueue(value T, producer int) bool {
	return m.rings[producer].Push(value)
}

// Enqueue pushes value into producer's dedicated ring, spinning until the
// consumer makes room. The rings are sized so that this practically never
// spins; the yield avoids a pathological busy-wait if it does.
func (m *MPSC[T]) Enqueue(value T, producer int) {
	for !m.rings[producer].Push(value) {
		runtime.Gosched()
	}
}

// Flush drains every ring into the consumer's private buffer. Consumer only.
func (m *MPSC[T]) Flush() {
	for _, ring := range m.rings {
		for {
			front := ring.Front()
			if front == nil {
				break
			}
			m.flushed = append(m.flushed, *front)
			ring.Pop()
		}
	}
}

// Dequeue returns the next value, blocking (spin + yield) until one arrives.
// Values are taken from the tail of the drain buffer. Consumer only.
func (m *MPSC[T]) Dequeue() T {
	for len(m.flushed) == 0 {
		m.Flush()
		if len(m.flushed) == 0 {
			runtime.Gosched()
		}
	}
	last := len(m.flushed) - 1
	value := m.flushed[last]
	var zero T
	m.flushed[last] = zero
	m.flushed = m.flushed[:last]
	return value
}

// Flushed exposes the drain buffer to the consumer, read-only. The steal
// heuristic uses it to decide whether this worker is about to run dry.
func (m *MPSC[T]) Flushed() []T { return m.flushed }
