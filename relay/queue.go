package relay

import (
	"sync"
	"time"
)

// FrameQueue is the hand-off point between the receive path and the
// playback loop: an ordered, unbounded queue of owned audio buffers.
// Any goroutine may enqueue; a single consumer waits and drains.
//
// The queue is unbounded. Sustained playback starvation grows it and
// is surfaced through the consumer's wait timeout rather than by
// dropping audio.
type FrameQueue struct {
	mu     sync.Mutex
	frames [][]byte

	// notify carries at most one pending wake-up. Enqueue signals it
	// once per call; collapsed signals are fine because a waiter
	// drains everything it finds, and a stale signal only causes a
	// spurious wake that the consumer already tolerates.
	notify chan struct{}
}

// NewFrameQueue creates an empty frame queue.
func NewFrameQueue() *FrameQueue {
	return &FrameQueue{notify: make(chan struct{}, 1)}
}

// Enqueue appends a frame and signals the consumer. The queue takes
// ownership of the buffer; the frame is visible to any subsequent
// Drain before Enqueue returns.
func (q *FrameQueue) Enqueue(frame []byte) {
	q.mu.Lock()
	q.frames = append(q.frames, frame)
	q.mu.Unlock()
	q.Signal()
}

// Signal wakes a pending waiter without enqueuing anything. Shutdown
// uses it to break the playback loop out of its timed wait.
func (q *FrameQueue) Signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Wait blocks until the queue is signalled or the timeout elapses,
// returning immediately when frames are already queued. The return
// value reports whether the wait timed out. A false return does not
// guarantee data: wake-ups may be spurious and callers must re-check
// via Drain.
func (q *FrameQueue) Wait(timeout time.Duration) (timedOut bool) {
	q.mu.Lock()
	pending := len(q.frames) > 0
	q.mu.Unlock()
	if pending {
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-q.notify:
		return false
	case <-timer.C:
		return true
	}
}

// Drain removes and returns every queued frame in FIFO order,
// transferring ownership to the caller. It returns nil when the queue
// is empty.
func (q *FrameQueue) Drain() [][]byte {
	q.mu.Lock()
	frames := q.frames
	q.frames = nil
	q.mu.Unlock()
	return frames
}

// Len returns the number of queued frames.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}
