package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/talkback-bot/talkback/pkg/audio"
	"github.com/talkback-bot/talkback/pkg/protocol"
	"github.com/talkback-bot/talkback/pkg/vad"
)

// maxMessageBytes bounds incoming websocket messages from the server.
const maxMessageBytes = 1 << 20

// frameSource yields captured audio chunks. *audio.Recorder satisfies it.
type frameSource interface {
	Start() error
	Stop() error
	ReadChunk(ctx context.Context) ([]byte, error)
}

var _ frameSource = (*audio.Recorder)(nil)

// wsConn is the slice of *websocket.Conn the session loops use, split out
// so tests can drive them with scripted connections.
type wsConn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
}

// SessionConfig holds everything one session needs beyond its
// collaborators.
type SessionConfig struct {
	// STTURL is the websocket URL of the transcription server.
	STTURL string

	// VAD configures utterance gating.
	VAD vad.Config

	// ChunkBytes is the capture frame size; it sizes the silence tail
	// frames.
	ChunkBytes int

	// SilenceTailFrames is how many silence frames to append after an
	// utterance ends, so the server's own silence window fills promptly.
	SilenceTailFrames int

	// ReadyTimeout bounds the wait for the server's ready message.
	ReadyTimeout time.Duration

	// MetricsInterval enables the periodic metrics summary when > 0.
	MetricsInterval time.Duration
}

// Session runs one connected stretch of the voice pipeline: capture,
// gate, stream, respond. It ends when the connection drops, the capture
// device dies, or ctx is cancelled.
type Session struct {
	cfg       SessionConfig
	recorder  frameSource
	responder *Responder
	metrics   *Metrics
}

// NewSession creates a Session.
func NewSession(cfg SessionConfig, recorder frameSource, responder *Responder, metrics *Metrics) *Session {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 5 * time.Second
	}
	return &Session{
		cfg:       cfg,
		recorder:  recorder,
		responder: responder,
		metrics:   metrics,
	}
}

// Run executes one full session and returns when it ends. The sender and
// receiver loops are fate-shared: the first one to fail brings the other
// down with it.
func (s *Session) Run(ctx context.Context) error {
	if err := s.recorder.Start(); err != nil {
		return fmt.Errorf("client: start recorder: %w", err)
	}
	defer s.recorder.Stop()

	conn, _, err := websocket.Dial(ctx, s.cfg.STTURL, nil)
	if err != nil {
		return fmt.Errorf("client: dial %s: %w", s.cfg.STTURL, err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxMessageBytes)

	if err := s.awaitReady(ctx, conn); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.sendLoop(gctx, conn) })
	g.Go(func() error { return s.recvLoop(gctx, conn) })
	if s.cfg.MetricsInterval > 0 {
		g.Go(func() error { return s.metrics.RunLogger(gctx, s.cfg.MetricsInterval) })
	}
	return g.Wait()
}

// awaitReady consumes the server's handshake message. A missing or
// malformed handshake is fatal for the session: cancelling a read on this
// websocket implementation poisons the connection, so there is no
// warn-and-continue path.
func (s *Session) awaitReady(ctx context.Context, conn wsConn) error {
	readyCtx, cancel := context.WithTimeout(ctx, s.cfg.ReadyTimeout)
	defer cancel()

	_, data, err := conn.Read(readyCtx)
	if err != nil {
		return fmt.Errorf("client: waiting for server ready: %w", err)
	}
	msg, err := protocol.Decode(data)
	if err != nil {
		return fmt.Errorf("client: decode ready: %w", err)
	}
	if msg.Kind != protocol.KindReady {
		return fmt.Errorf("client: expected ready message, got %s", msg.Kind)
	}
	slog.Info("transcription server ready", "sample_rate", msg.SampleRate)
	return nil
}

// sendLoop pumps captured audio through the VAD gate to the server.
// Outside an utterance nothing is transmitted; inside one, every frame is,
// silence included, plus a short silence tail after the end so the server
// flushes without waiting for the next utterance.
func (s *Session) sendLoop(ctx context.Context, conn wsConn) error {
	gate := vad.New(s.cfg.VAD)
	silence := audio.SilenceFrame(s.cfg.ChunkBytes)

	for {
		chunk, err := s.recorder.ReadChunk(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, audio.ErrDeviceTimeout) {
				return fmt.Errorf("client: capture stalled: %w", err)
			}
			return fmt.Errorf("client: read chunk: %w", err)
		}

		now := time.Now()
		voiced := gate.Voiced(audio.RMS(chunk))

		if !gate.InUtterance() {
			if !voiced || !gate.CanStart(now) {
				continue
			}
			gate.Start(now)
			slog.Debug("utterance started")
		} else if voiced {
			gate.UpdateVoice(now)
		}

		if err := conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
			return fmt.Errorf("client: send audio: %w", err)
		}

		if !gate.ShouldEnd(now) {
			continue
		}
		duration := gate.End(time.Now())

		for i := 0; i < s.cfg.SilenceTailFrames; i++ {
			if err := conn.Write(ctx, websocket.MessageBinary, silence); err != nil {
				return fmt.Errorf("client: send silence tail: %w", err)
			}
		}

		if gate.IsValid(duration) {
			slog.Debug("utterance ended", "duration", duration)
		} else {
			slog.Debug("utterance too short, ignored", "duration", duration)
		}
	}
}

// recvLoop consumes server messages. Transcripts go to the responder;
// binary frames are ignored; a server error message ends the session.
func (s *Session) recvLoop(ctx context.Context, conn wsConn) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("client: read message: %w", err)
		}
		if typ == websocket.MessageBinary {
			continue
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			slog.Warn("undecodable server message", "error", err)
			continue
		}

		switch msg.Kind {
		case protocol.KindTranscript:
			s.responder.HandleTranscript(ctx, msg.Text, msg.Duration)
		case protocol.KindError:
			s.metrics.RecordSTTError()
			return fmt.Errorf("client: transcription server error: %s", msg.Detail)
		}
	}
}
