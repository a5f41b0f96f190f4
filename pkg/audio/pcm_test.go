package audio

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func pcmOf(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestFloat32Samples(t *testing.T) {
	pcm := pcmOf(0, 16384, -16384, 32767, -32768)
	got := Float32Samples(pcm)
	want := []float32{0, 0.5, -0.5, 32767.0 / 32768.0, -1.0}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRMSSilence(t *testing.T) {
	got := RMS(pcmOf(0, 0, 0, 0))
	if got > 1e-5 {
		t.Errorf("RMS of silence = %v, want near 0", got)
	}
}

func TestRMSFullScale(t *testing.T) {
	// Full-scale square wave has RMS 1.0.
	samples := make([]int16, 160)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = -32768
		} else {
			samples[i] = 32767
		}
	}
	got := RMS(pcmOf(samples...))
	if math.Abs(got-1.0) > 1e-3 {
		t.Errorf("RMS of full-scale square = %v, want ~1.0", got)
	}
}

func TestRMSEmpty(t *testing.T) {
	if got := RMS(nil); got > 1e-5 {
		t.Errorf("RMS(nil) = %v, want near 0", got)
	}
}

func TestBytesPerChunk(t *testing.T) {
	if got := BytesPerChunk(16000, 30); got != 960 {
		t.Errorf("BytesPerChunk(16000, 30) = %d, want 960", got)
	}
	if got := BytesPerChunk(48000, 20); got != 1920 {
		t.Errorf("BytesPerChunk(48000, 20) = %d, want 1920", got)
	}
}

func TestSeconds(t *testing.T) {
	if got := Seconds(32000, 16000); got != 1.0 {
		t.Errorf("Seconds(32000, 16000) = %v, want 1.0", got)
	}
	if got := Duration(16000, 16000); got != 500*time.Millisecond {
		t.Errorf("Duration(16000, 16000) = %v, want 500ms", got)
	}
}

func TestSilenceFrame(t *testing.T) {
	frame := SilenceFrame(960)
	if len(frame) != 960 {
		t.Fatalf("len = %d, want 960", len(frame))
	}
	if got := RMS(frame); got > 1e-5 {
		t.Errorf("RMS of silence frame = %v, want near 0", got)
	}
}
