package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameQueueFIFOWithConcurrentProducer(t *testing.T) {
	q := NewFrameQueue()

	const total = 200
	go func() {
		for i := 0; i < total; i++ {
			q.Enqueue([]byte{byte(i), byte(i >> 8)})
		}
	}()

	var got [][]byte
	deadline := time.Now().Add(5 * time.Second)
	for len(got) < total && time.Now().Before(deadline) {
		q.Wait(100 * time.Millisecond)
		got = append(got, q.Drain()...)
	}

	require.Len(t, got, total)
	for i, frame := range got {
		assert.Equal(t, []byte{byte(i), byte(i >> 8)}, frame, "frame %d out of order", i)
	}
}

func TestFrameQueueWaitTimesOutWhenEmpty(t *testing.T) {
	q := NewFrameQueue()

	start := time.Now()
	timedOut := q.Wait(50 * time.Millisecond)
	elapsed := time.Since(start)

	assert.True(t, timedOut)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Nil(t, q.Drain(), "an empty drain yields nothing to play")
}

func TestFrameQueueWaitReturnsImmediatelyWithData(t *testing.T) {
	q := NewFrameQueue()
	q.Enqueue([]byte{1})

	start := time.Now()
	timedOut := q.Wait(3 * time.Second)

	assert.False(t, timedOut)
	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, q.Drain(), 1)
}

func TestFrameQueueSpuriousWakeIsTolerable(t *testing.T) {
	q := NewFrameQueue()

	// A bare signal (the shutdown path) wakes the waiter with an
	// empty queue; the consumer must find nothing rather than fail.
	q.Signal()
	timedOut := q.Wait(3 * time.Second)

	assert.False(t, timedOut)
	assert.Nil(t, q.Drain())
}

func TestFrameQueueDrainTransfersOwnership(t *testing.T) {
	q := NewFrameQueue()
	q.Enqueue([]byte{1})
	q.Enqueue([]byte{2})

	first := q.Drain()
	assert.Len(t, first, 2)
	assert.Zero(t, q.Len())
	assert.Nil(t, q.Drain(), "a second drain finds nothing")
}
