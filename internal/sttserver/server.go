package sttserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/talkback-bot/talkback/internal/observe"
	"github.com/talkback-bot/talkback/internal/transcribe"
	"github.com/talkback-bot/talkback/pkg/audio"
	"github.com/talkback-bot/talkback/pkg/protocol"
)

// Path is the websocket endpoint route. Clients dial
// ws://host:port/ws/stt.
const Path = "/ws/stt"

// maxFrameBytes bounds a single websocket message. Ten seconds of 16 kHz
// PCM is well under this.
const maxFrameBytes = 1 << 20

// Server handles websocket transcription connections. Each connection gets
// its own [Buffer]; the transcriber is shared across all of them.
type Server struct {
	transcriber transcribe.Transcriber
	cfg         BufferConfig
	metrics     *observe.Metrics
}

// New creates a Server. metrics may be nil in tests.
func New(transcriber transcribe.Transcriber, cfg BufferConfig, metrics *observe.Metrics) *Server {
	return &Server{
		transcriber: transcriber,
		cfg:         cfg,
		metrics:     metrics,
	}
}

// ServeHTTP upgrades the request to a websocket and runs the transcription
// session until the client disconnects or a server-side error occurs.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	if s.metrics != nil {
		s.metrics.RecordWSConnection(ctx, "accepted")
		s.metrics.ActiveConnections.Add(ctx, 1)
		defer s.metrics.ActiveConnections.Add(ctx, -1)
	}

	if s.transcriber == nil {
		if s.metrics != nil {
			s.metrics.RecordWSConnection(ctx, "model_not_loaded")
		}
		conn.Close(websocket.StatusInternalError, "model not loaded")
		return
	}

	conn.SetReadLimit(maxFrameBytes)

	if err := s.session(ctx, conn); err != nil {
		slog.Error("transcription session failed", "error", err)
		if s.metrics != nil {
			s.metrics.RecordWSConnection(ctx, "error")
		}
		s.sendMessage(ctx, conn, protocol.Error(err.Error()))
		conn.Close(websocket.StatusInternalError, "session failed")
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

// session runs the receive loop for one connection. A nil return means the
// client went away normally.
func (s *Server) session(ctx context.Context, conn *websocket.Conn) error {
	if err := s.sendMessage(ctx, conn, protocol.Ready(s.cfg.SampleRate)); err != nil {
		return fmt.Errorf("sttserver: send ready: %w", err)
	}

	buf := NewBuffer(s.cfg)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			// Any close from the peer ends the session without fuss.
			var closeErr websocket.CloseError
			if errors.As(err, &closeErr) || ctx.Err() != nil {
				return nil
			}
			return nil
		}

		switch typ {
		case websocket.MessageBinary:
			if len(data) == 0 {
				continue
			}
			reason := buf.Append(data, time.Now())
			if reason == FlushNone {
				continue
			}
			if err := s.flush(ctx, conn, buf, reason); err != nil {
				return err
			}

		case websocket.MessageText:
			cmd := strings.ToLower(strings.TrimSpace(string(data)))
			if cmd != protocol.FlushCommand || buf.Len() == 0 {
				continue
			}
			if err := s.flush(ctx, conn, buf, FlushForced); err != nil {
				return err
			}
			if err := s.sendMessage(ctx, conn, protocol.Flushed()); err != nil {
				return fmt.Errorf("sttserver: send flushed: %w", err)
			}
		}
	}
}

// flush transcribes the buffered utterance and sends the transcript back.
// Utterances below the minimum duration are dropped silently.
func (s *Server) flush(ctx context.Context, conn *websocket.Conn, buf *Buffer, reason FlushReason) error {
	pcm, seconds := buf.Take()
	if buf.TooShort(seconds) {
		slog.Debug("discarding short utterance", "seconds", seconds, "reason", reason.String())
		return nil
	}

	samples := audio.Float32Samples(pcm)

	start := time.Now()
	text, err := s.transcriber.Transcribe(ctx, samples)
	elapsed := time.Since(start)

	if s.metrics != nil {
		s.metrics.STTDuration.Record(ctx, elapsed.Seconds())
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordTranscription(ctx, "error")
		}
		return fmt.Errorf("sttserver: transcribe: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordTranscription(ctx, "ok")
	}

	slog.Info("utterance transcribed",
		"seconds", seconds,
		"reason", reason.String(),
		"chars", len(text),
		"took", elapsed)

	if text == "" {
		return nil
	}
	if err := s.sendMessage(ctx, conn, protocol.Transcript(text, seconds)); err != nil {
		return fmt.Errorf("sttserver: send transcript: %w", err)
	}
	return nil
}

func (s *Server) sendMessage(ctx context.Context, conn *websocket.Conn, msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// Healther exposes readiness of the transcription model, for health checks.
type Healther interface {
	Loaded() bool
}

// Ready reports whether the server can accept transcription work.
func (s *Server) Ready() bool {
	if s.transcriber == nil {
		return false
	}
	if h, ok := s.transcriber.(Healther); ok {
		return h.Loaded()
	}
	return true
}
