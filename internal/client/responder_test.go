package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/talkback-bot/talkback/internal/ttsclient"
	"github.com/talkback-bot/talkback/pkg/audio/mock"
)

// fakeSpeaker returns a canned result or error.
type fakeSpeaker struct {
	result *ttsclient.Result
	err    error
	calls  int
}

func (f *fakeSpeaker) Speak(_ context.Context, _ string) (*ttsclient.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestResponderSpeaksTranscript(t *testing.T) {
	speaker := &fakeSpeaker{result: &ttsclient.Result{WAV: []byte("RIFF"), BotResponse: "hi"}}
	player := &mock.Player{}
	metrics := NewMetrics()
	r := NewResponder(speaker, player, metrics, time.Hour)

	r.HandleTranscript(context.Background(), "hello bot", 1.0)

	if speaker.calls != 1 {
		t.Errorf("speaker calls = %d, want 1", speaker.calls)
	}
	if got := player.Played(); len(got) != 1 || string(got[0]) != "RIFF" {
		t.Errorf("played = %v, want one RIFF clip", got)
	}
	if metrics.Responses() != 1 {
		t.Errorf("responses = %d, want 1", metrics.Responses())
	}
	if metrics.Transcriptions() != 1 {
		t.Errorf("transcriptions = %d, want 1", metrics.Transcriptions())
	}
}

func TestResponderIgnoresEmptyTranscript(t *testing.T) {
	speaker := &fakeSpeaker{result: &ttsclient.Result{WAV: []byte("RIFF")}}
	metrics := NewMetrics()
	r := NewResponder(speaker, &mock.Player{}, metrics, time.Hour)

	r.HandleTranscript(context.Background(), "   ", 0.5)

	if speaker.calls != 0 {
		t.Errorf("speaker calls = %d, want 0", speaker.calls)
	}
	if metrics.Transcriptions() != 0 {
		t.Errorf("transcriptions = %d, want 0 for blank text", metrics.Transcriptions())
	}
}

func TestResponderCooldownSkipsSecondResponse(t *testing.T) {
	speaker := &fakeSpeaker{result: &ttsclient.Result{WAV: []byte("RIFF")}}
	metrics := NewMetrics()
	r := NewResponder(speaker, &mock.Player{}, metrics, time.Hour)

	r.HandleTranscript(context.Background(), "first", 1.0)
	r.HandleTranscript(context.Background(), "second", 1.0)

	if speaker.calls != 1 {
		t.Errorf("speaker calls = %d, want 1 (second must be skipped)", speaker.calls)
	}
	if metrics.Skipped() != 1 {
		t.Errorf("skipped = %d, want 1", metrics.Skipped())
	}
}

func TestResponderCooldownExpires(t *testing.T) {
	speaker := &fakeSpeaker{result: &ttsclient.Result{WAV: []byte("RIFF")}}
	metrics := NewMetrics()
	r := NewResponder(speaker, &mock.Player{}, metrics, 10*time.Millisecond)

	r.HandleTranscript(context.Background(), "first", 1.0)
	time.Sleep(15 * time.Millisecond)
	r.HandleTranscript(context.Background(), "second", 1.0)

	if speaker.calls != 2 {
		t.Errorf("speaker calls = %d, want 2 after cooldown expired", speaker.calls)
	}
}

func TestResponderSynthesisFailureNonFatal(t *testing.T) {
	speaker := &fakeSpeaker{err: errors.New("service down")}
	metrics := NewMetrics()
	r := NewResponder(speaker, &mock.Player{}, metrics, time.Hour)

	r.HandleTranscript(context.Background(), "hello", 1.0)
	// Failure must not start the cooldown; the next transcript should
	// still attempt a response.
	r.HandleTranscript(context.Background(), "hello again", 1.0)

	if speaker.calls != 2 {
		t.Errorf("speaker calls = %d, want 2 (failures must not arm cooldown)", speaker.calls)
	}
	if metrics.Responses() != 0 {
		t.Errorf("responses = %d, want 0", metrics.Responses())
	}
}

func TestResponderPlaybackFailureCounted(t *testing.T) {
	speaker := &fakeSpeaker{result: &ttsclient.Result{WAV: []byte("RIFF")}}
	player := &mock.Player{Err: errors.New("no output device")}
	metrics := NewMetrics()
	r := NewResponder(speaker, player, metrics, time.Hour)

	r.HandleTranscript(context.Background(), "hello", 1.0)

	if metrics.Responses() != 0 {
		t.Errorf("responses = %d, want 0 after playback failure", metrics.Responses())
	}
}
