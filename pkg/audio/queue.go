package audio

import (
	"context"
	"errors"
	"time"
)

// ErrQueueTimeout is returned by [Queue.Get] when no frame arrives within
// the wait window. Consumers typically treat it as a no-op continuation,
// not a failure.
var ErrQueueTimeout = errors.New("audio: queue get timed out")

// Queue is a bounded FIFO of audio frames with drop-oldest backpressure.
//
// Put never blocks: when the queue is full the single oldest frame is
// evicted to make room for the new one, so the final contents are always
// the most recent frames in arrival order. This keeps the capture callback
// real-time safe at the cost of losing stale audio under load.
//
// Queue is intended for one producer (the capture callback) and one
// consumer (the sender loop) running concurrently.
type Queue struct {
	ch chan []byte
}

// NewQueue creates a Queue holding at most capacity frames. Capacity must
// be at least 1.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan []byte, capacity)}
}

// Put appends frame to the queue, evicting the oldest frame first when the
// queue is full. It never blocks and never fails.
func (q *Queue) Put(frame []byte) {
	for {
		select {
		case q.ch <- frame:
			return
		default:
		}
		// Full: evict the oldest entry and retry. The non-blocking receive
		// covers the race where the consumer drained the queue in between.
		select {
		case <-q.ch:
		default:
		}
	}
}

// Get returns the next frame, waiting up to wait for one to arrive.
// It returns [ErrQueueTimeout] if the window elapses and ctx.Err() if the
// context is cancelled first.
func (q *Queue) Get(ctx context.Context, wait time.Duration) ([]byte, error) {
	select {
	case frame := <-q.ch:
		return frame, nil
	default:
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case frame := <-q.ch:
		return frame, nil
	case <-timer.C:
		return nil, ErrQueueTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of frames currently buffered.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return cap(q.ch) }
