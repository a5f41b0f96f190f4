// Package mock provides scripted [audio.CaptureStream] and [audio.Player]
// implementations for tests. They record every interaction and let tests
// drive frames and status flags deterministically.
package mock

import (
	"context"
	"sync"
)

// Capture is a scripted capture stream. Tests call EmitFrame / EmitStatus
// to simulate the device callback firing.
type Capture struct {
	mu       sync.Mutex
	onFrame  func([]byte)
	onStatus func(string)
	started  bool
	stops    int
}

// Start records the callbacks for later Emit calls.
func (c *Capture) Start(onFrame func(frame []byte), onStatus func(status string)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFrame = onFrame
	c.onStatus = onStatus
	c.started = true
	return nil
}

// Stop marks the stream stopped.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
	c.stops++
	return nil
}

// Started reports whether Start has been called without a matching Stop.
func (c *Capture) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// Stops returns how many times Stop was called.
func (c *Capture) Stops() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stops
}

// EmitFrame invokes the registered frame callback, as the device would.
func (c *Capture) EmitFrame(frame []byte) {
	c.mu.Lock()
	cb := c.onFrame
	c.mu.Unlock()
	if cb != nil {
		cb(frame)
	}
}

// EmitStatus invokes the registered status callback.
func (c *Capture) EmitStatus(status string) {
	c.mu.Lock()
	cb := c.onStatus
	c.mu.Unlock()
	if cb != nil {
		cb(status)
	}
}

// Player records every clip played through it. If Err is set, Play
// returns it instead of recording.
type Player struct {
	mu     sync.Mutex
	Err    error
	played [][]byte
}

// Play records the clip, or fails with p.Err when set.
func (p *Player) Play(_ context.Context, wav []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	cp := make([]byte, len(wav))
	copy(cp, wav)
	p.played = append(p.played, cp)
	return nil
}

// Played returns a snapshot of all recorded clips.
func (p *Player) Played() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.played))
	copy(out, p.played)
	return out
}
