package sttserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/talkback-bot/talkback/pkg/protocol"
)

// fakeTranscriber returns a fixed text for any utterance.
type fakeTranscriber struct {
	text  string
	calls int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []float32) (string, error) {
	f.calls++
	return f.text, nil
}

func dialTestServer(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("websocket.Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if typ != websocket.MessageText {
		t.Fatalf("message type = %v, want text", typ)
	}
	msg, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return msg
}

func TestServerMountedAtPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle(Path, New(&fakeTranscriber{text: "hi"}, testBufferConfig(), nil))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	base := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	conn, _, err := websocket.Dial(ctx, base+"/ws/stt", nil)
	if err != nil {
		t.Fatalf("Dial(%s/ws/stt) error = %v", base, err)
	}
	t.Cleanup(func() { conn.CloseNow() })

	if msg := readMessage(t, conn); msg.Kind != protocol.KindReady {
		t.Errorf("first message kind = %v, want ready", msg.Kind)
	}

	// Only the registered route upgrades.
	if c, _, err := websocket.Dial(ctx, base+"/ws", nil); err == nil {
		c.CloseNow()
		t.Error("Dial(/ws) succeeded, want 404")
	}
}

func TestServerSendsReady(t *testing.T) {
	s := New(&fakeTranscriber{text: "hi"}, testBufferConfig(), nil)
	conn := dialTestServer(t, s)

	msg := readMessage(t, conn)
	if msg.Kind != protocol.KindReady {
		t.Fatalf("first message kind = %v, want ready", msg.Kind)
	}
	if msg.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", msg.SampleRate)
	}
}

func TestServerTranscribesUtterance(t *testing.T) {
	ft := &fakeTranscriber{text: "hello world"}
	s := New(ft, testBufferConfig(), nil)
	conn := dialTestServer(t, s)

	if msg := readMessage(t, conn); msg.Kind != protocol.KindReady {
		t.Fatalf("expected ready, got %v", msg.Kind)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Half a second of voice, then force a flush so the test does not
	// depend on wall-clock silence timing.
	for i := 0; i < 17; i++ {
		if err := conn.Write(ctx, websocket.MessageBinary, voicedChunk(30)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(protocol.FlushCommand)); err != nil {
		t.Fatalf("Write(flush) error = %v", err)
	}

	msg := readMessage(t, conn)
	if msg.Kind != protocol.KindTranscript {
		t.Fatalf("kind = %v, want transcript", msg.Kind)
	}
	if msg.Text != "hello world" {
		t.Errorf("text = %q, want %q", msg.Text, "hello world")
	}
	if msg.Duration < 0.5 {
		t.Errorf("duration = %v, want >= 0.5", msg.Duration)
	}

	// The flush command is acknowledged after the transcript.
	if msg := readMessage(t, conn); msg.Kind != protocol.KindFlushed {
		t.Errorf("kind = %v, want flushed", msg.Kind)
	}
}

func TestServerIgnoresFlushOnEmptyBuffer(t *testing.T) {
	ft := &fakeTranscriber{text: "should not appear"}
	s := New(ft, testBufferConfig(), nil)
	conn := dialTestServer(t, s)

	if msg := readMessage(t, conn); msg.Kind != protocol.KindReady {
		t.Fatalf("expected ready, got %v", msg.Kind)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := conn.Write(ctx, websocket.MessageText, []byte("flush")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// No flushed ack and no transcript should arrive.
	readCtx, readCancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer readCancel()
	if _, _, err := conn.Read(readCtx); err == nil {
		t.Error("unexpected message after flush of empty buffer")
	}
	if ft.calls != 0 {
		t.Errorf("transcriber calls = %d, want 0", ft.calls)
	}
}

func TestServerDiscardsShortUtterance(t *testing.T) {
	ft := &fakeTranscriber{text: "noise"}
	s := New(ft, testBufferConfig(), nil)
	conn := dialTestServer(t, s)

	if msg := readMessage(t, conn); msg.Kind != protocol.KindReady {
		t.Fatalf("expected ready, got %v", msg.Kind)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// One 30ms voiced frame is below the minimum utterance length.
	if err := conn.Write(ctx, websocket.MessageBinary, voicedChunk(30)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte("flush")); err != nil {
		t.Fatalf("Write(flush) error = %v", err)
	}

	// The forced flush of a too-short utterance still yields a flushed
	// ack but no transcript.
	msg := readMessage(t, conn)
	if msg.Kind != protocol.KindFlushed {
		t.Fatalf("kind = %v, want flushed", msg.Kind)
	}
	if ft.calls != 0 {
		t.Errorf("transcriber calls = %d, want 0 for short utterance", ft.calls)
	}
}

func TestServerRejectsWithoutModel(t *testing.T) {
	s := New(nil, testBufferConfig(), nil)
	conn := dialTestServer(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, _, err := conn.Read(ctx)
	if err == nil {
		t.Fatal("expected connection close when no model is loaded")
	}
	if got := websocket.CloseStatus(err); got != websocket.StatusInternalError {
		t.Errorf("close status = %v, want StatusInternalError", got)
	}
}

func TestServerReady(t *testing.T) {
	if New(nil, testBufferConfig(), nil).Ready() {
		t.Error("Ready() = true without transcriber")
	}
	if !New(&fakeTranscriber{}, testBufferConfig(), nil).Ready() {
		t.Error("Ready() = false with transcriber")
	}
}
