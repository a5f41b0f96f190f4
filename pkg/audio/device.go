package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrDeviceTimeout is returned by [Recorder.ReadChunk] when no frame
// arrives within five chunk durations. It usually means the capture device
// has disconnected and is fatal for the current session.
var ErrDeviceTimeout = errors.New("audio: capture stream timed out, device may have disconnected")

// CaptureStream is the device-side capture contract. Implementations wrap
// a real input device or an external capture process and invoke onFrame
// once per fixed-size PCM16LE frame from their own goroutine or thread at
// uncontrolled times. Neither callback may block.
//
// onStatus reports non-fatal device conditions (overflows, xruns) as free
// text; they are logged by the consumer and only matter if they recur.
type CaptureStream interface {
	// Start begins capture. The callbacks remain in effect until Stop.
	Start(onFrame func(frame []byte), onStatus func(status string)) error

	// Stop halts capture and releases the device. Safe to call more than
	// once.
	Stop() error
}

// Player plays a complete WAV clip through an output device, blocking
// until playback finishes or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, wav []byte) error
}

// Recorder adapts a [CaptureStream] into a pull API backed by a bounded
// drop-oldest [Queue], so the sender loop can consume frames at its own
// pace without ever blocking the device callback.
type Recorder struct {
	stream   CaptureStream
	queue    *Queue
	statusCh chan string
	chunk    time.Duration

	mu      sync.Mutex
	started bool
}

// NewRecorder creates a Recorder over stream with the given queue capacity
// and nominal chunk duration. The chunk duration drives the ReadChunk
// timeout (5× chunk).
func NewRecorder(stream CaptureStream, queueSize int, chunk time.Duration) *Recorder {
	return &Recorder{
		stream:   stream,
		queue:    NewQueue(queueSize),
		statusCh: make(chan string, 16),
		chunk:    chunk,
	}
}

// Start begins capture. Frames are pushed into the internal queue with
// drop-oldest backpressure; device status flags are queued separately and
// drained opportunistically by ReadChunk.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	err := r.stream.Start(
		func(frame []byte) {
			r.queue.Put(frame)
		},
		func(status string) {
			select {
			case r.statusCh <- status:
			default:
			}
		},
	)
	if err != nil {
		return fmt.Errorf("audio: start capture: %w", err)
	}
	r.started = true
	return nil
}

// Stop halts capture. Safe to call more than once.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil
	}
	r.started = false
	return r.stream.Stop()
}

// ReadChunk returns the next captured frame, waiting up to five chunk
// durations. Pending device status flags are logged first; they are
// non-fatal. A timeout returns [ErrDeviceTimeout].
func (r *Recorder) ReadChunk(ctx context.Context) ([]byte, error) {
	for {
		select {
		case status := <-r.statusCh:
			slog.Warn("audio capture status", "status", status)
			continue
		default:
		}
		break
	}

	frame, err := r.queue.Get(ctx, 5*r.chunk)
	if errors.Is(err, ErrQueueTimeout) {
		return nil, ErrDeviceTimeout
	}
	return frame, err
}
