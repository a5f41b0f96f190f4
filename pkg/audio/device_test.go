package audio_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/talkback-bot/talkback/pkg/audio"
	"github.com/talkback-bot/talkback/pkg/audio/mock"
)

func TestRecorderReadChunk(t *testing.T) {
	stream := &mock.Capture{}
	rec := audio.NewRecorder(stream, 8, 30*time.Millisecond)
	if err := rec.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer rec.Stop()

	stream.EmitFrame([]byte{1, 2, 3})
	got, err := rec.ReadChunk(context.Background())
	if err != nil {
		t.Fatalf("ReadChunk() error = %v", err)
	}
	if len(got) != 3 || got[0] != 1 {
		t.Errorf("ReadChunk() = %v, want [1 2 3]", got)
	}
}

func TestRecorderReadChunkTimeout(t *testing.T) {
	stream := &mock.Capture{}
	rec := audio.NewRecorder(stream, 8, 2*time.Millisecond)
	if err := rec.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer rec.Stop()

	_, err := rec.ReadChunk(context.Background())
	if !errors.Is(err, audio.ErrDeviceTimeout) {
		t.Errorf("ReadChunk() error = %v, want ErrDeviceTimeout", err)
	}
}

func TestRecorderStatusNonFatal(t *testing.T) {
	stream := &mock.Capture{}
	rec := audio.NewRecorder(stream, 8, 30*time.Millisecond)
	if err := rec.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer rec.Stop()

	stream.EmitStatus("input overflow")
	stream.EmitFrame([]byte{9})

	got, err := rec.ReadChunk(context.Background())
	if err != nil {
		t.Fatalf("ReadChunk() error = %v", err)
	}
	if got[0] != 9 {
		t.Errorf("ReadChunk() = %v, want [9]", got)
	}
}

func TestRecorderStopIdempotent(t *testing.T) {
	stream := &mock.Capture{}
	rec := audio.NewRecorder(stream, 8, 30*time.Millisecond)
	if err := rec.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := rec.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := rec.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
	if stream.Stops() != 1 {
		t.Errorf("Stops() = %d, want 1", stream.Stops())
	}
}
