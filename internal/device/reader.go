// Package device provides concrete capture and playback backends for the
// client: a reader-based capture stream (stdin or any PCM byte source, e.g.
// a recording process piped in) and a player that hands WAV clips to an
// external command such as aplay.
package device

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/talkback-bot/talkback/pkg/audio"
)

// Compile-time assertion that ReaderCapture satisfies audio.CaptureStream.
var _ audio.CaptureStream = (*ReaderCapture)(nil)

// ReaderCapture reads raw PCM16LE audio from an io.Reader and delivers it
// in fixed-size frames. A trailing partial frame at EOF is discarded.
type ReaderCapture struct {
	r          io.Reader
	chunkBytes int

	mu      sync.Mutex
	started bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewReaderCapture creates a capture stream over r emitting frames of
// chunkBytes bytes.
func NewReaderCapture(r io.Reader, chunkBytes int) *ReaderCapture {
	return &ReaderCapture{
		r:          r,
		chunkBytes: chunkBytes,
	}
}

// Start launches the read loop. Frames are delivered on the loop's own
// goroutine; read failures other than EOF are reported through onStatus and
// end the stream.
func (c *ReaderCapture) Start(onFrame func(frame []byte), onStatus func(status string)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errors.New("device: capture already started")
	}
	if c.chunkBytes <= 0 {
		return fmt.Errorf("device: invalid chunk size %d", c.chunkBytes)
	}
	c.started = true
	c.done = make(chan struct{})

	c.wg.Add(1)
	go c.loop(onFrame, onStatus)
	return nil
}

func (c *ReaderCapture) loop(onFrame func([]byte), onStatus func(string)) {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		default:
		}

		buf := make([]byte, c.chunkBytes)
		_, err := io.ReadFull(c.r, buf)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				onStatus("read failed: " + err.Error())
			}
			return
		}
		onFrame(buf)
	}
}

// Stop ends the read loop. If the underlying reader is an io.Closer it is
// closed to unblock a pending read. Safe to call more than once.
func (c *ReaderCapture) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	close(c.done)
	c.mu.Unlock()

	var err error
	if closer, ok := c.r.(io.Closer); ok {
		err = closer.Close()
	}
	c.wg.Wait()
	return err
}
