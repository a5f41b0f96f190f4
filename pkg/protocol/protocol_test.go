package protocol

import (
	"strings"
	"testing"
)

func TestEncodeDecodeReady(t *testing.T) {
	data, err := Encode(Ready(16000))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !strings.Contains(string(data), `"type":"ready"`) {
		t.Errorf("Encode() = %s, want type ready", data)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Kind != KindReady || got.SampleRate != 16000 {
		t.Errorf("Decode() = %+v, want ready/16000", got)
	}
}

func TestEncodeDecodeTranscript(t *testing.T) {
	data, err := Encode(Transcript("hello there", 1.25))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Kind != KindTranscript {
		t.Fatalf("Kind = %v, want transcript", got.Kind)
	}
	if got.Text != "hello there" || got.Duration != 1.25 {
		t.Errorf("Decode() = %+v, want text/duration preserved", got)
	}
}

func TestEncodeDecodeError(t *testing.T) {
	data, err := Encode(Error("model not loaded"))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Kind != KindError || got.Detail != "model not loaded" {
		t.Errorf("Decode() = %+v, want error with detail", got)
	}
}

func TestDecodeFlushed(t *testing.T) {
	got, err := Decode([]byte(`{"type":"flushed"}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Kind != KindFlushed {
		t.Errorf("Kind = %v, want flushed", got.Kind)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	got, err := Decode([]byte(`{"type":"heartbeat"}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Kind != KindUnknown {
		t.Errorf("Kind = %v, want unknown", got.Kind)
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Error("Decode(malformed) error = nil, want error")
	}
}

func TestEncodeUnknownKind(t *testing.T) {
	if _, err := Encode(Message{Kind: KindUnknown}); err == nil {
		t.Error("Encode(unknown) error = nil, want error")
	}
}
