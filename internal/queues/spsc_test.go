package queues_test

import (
	"testing"

	"github.com/janpfeifer/stackGo/internal/queues"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSPSC_PushPopOrder(t *testing.T) {
	q := queues.NewSPSC[int](8)
	for i := 0; i < 5; i++ {
		require.True(t, q.Push(i))
	}
	for i := 0; i < 5; i++ {
		front := q.Front()
		require.NotNil(t, front)
		assert.Equal(t, i, *front)
		q.Pop()
	}
	assert.Nil(t, q.Front())
	assert.True(t, q.Empty())
}

func TestSPSC_FullRejects(t *testing.T) {
	q := queues.NewSPSC[int](4)
	for i := 0; i < 4; i++ {
		require.True(t, q.Push(i))
	}
	assert.False(t, q.Push(99), "push into a full ring must be rejected")

	// Making room re-enables pushes, and the ring keeps FIFO order across
	// the wraparound.
	q.Pop()
	require.True(t, q.Push(4))
	for want := 1; want <= 4; want++ {
		front := q.Front()
		require.NotNil(t, front)
		assert.Equal(t, want, *front)
		q.Pop()
	}
}

func TestSPSC_Wraparound(t *testing.T) {
	q := queues.NewSPSC[int](4)
	next := 0
	for round := 0; round < 100; round++ {
		require.True(t, q.Push(round))
		front := q.Front()
		require.NotNil(t, front)
		require.Equal(t, next, *front)
		q.Pop()
		next++
	}
}

func TestSPSC_RequiresPowerOfTwo(t *testing.T) {
	assert.Panics(t, func() { queues.NewSPSC[int](3) })
	assert.Panics(t, func() { queues.NewSPSC[int](0) })
}

// TestSPSC_CrossGoroutine transfers a stream through the ring with one
// producer and one consumer goroutine and checks nothing is lost, duplicated
// or reordered.
func TestSPSC_CrossGoroutine(t *testing.T) {
	const count = 100_000
	q := queues.NewSPSC[int](queues.DefaultCapacity)
	done := make(chan uint64)
	go func() {
		var sum uint64
		received := 0
		for received < count {
			front := q.Front()
			if front == nil {
				continue
			}
			if *front != received {
				t.Errorf("received %d out of order, want %d", *front, received)
				break
			}
			sum += uint64(*front)
			q.Pop()
			received++
		}
		done <- sum
	}()
	for i := 0; i < count; i++ {
		for !q.Push(i) {
		}
	}
	var want uint64 = count * (count - 1) / 2
	require.Equal(t, want, <-done)
}
