package client

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/talkback-bot/talkback/internal/ttsclient"
	"github.com/talkback-bot/talkback/pkg/audio"
)

// Speaker turns reply text into audio. *ttsclient.Client satisfies it.
type Speaker interface {
	Speak(ctx context.Context, text string) (*ttsclient.Result, error)
}

var _ Speaker = (*ttsclient.Client)(nil)

// Responder reacts to transcripts: it requests a spoken reply from the
// synthesis service and plays it, while enforcing a cooldown between
// responses so the bot cannot talk over itself.
//
// Response generation is serialized: while one reply is being synthesized
// and played, further transcripts wait on the lock and then usually hit
// the cooldown. The cooldown window starts when playback FINISHES, not
// when it starts, so back-to-back utterances during a long clip stay
// suppressed.
type Responder struct {
	tts      Speaker
	player   audio.Player
	metrics  *Metrics
	cooldown time.Duration

	// lastResponse is the UnixNano time playback last completed. Read
	// without the lock for the optimistic pre-check.
	lastResponse atomic.Int64

	mu sync.Mutex
}

// NewResponder creates a Responder.
func NewResponder(tts Speaker, player audio.Player, metrics *Metrics, cooldown time.Duration) *Responder {
	return &Responder{
		tts:      tts,
		player:   player,
		metrics:  metrics,
		cooldown: cooldown,
	}
}

// inCooldown reports whether now falls inside the response cooldown.
func (r *Responder) inCooldown(now time.Time) bool {
	last := r.lastResponse.Load()
	if last == 0 {
		return false
	}
	return now.Sub(time.Unix(0, last)) < r.cooldown
}

// HandleTranscript processes one transcript. Failures are logged and
// counted but never propagate: a broken synthesis service must not kill
// the websocket session that delivers transcripts.
func (r *Responder) HandleTranscript(ctx context.Context, text string, sttSeconds float64) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	received := time.Now()
	sttDuration := time.Duration(sttSeconds * float64(time.Second))
	r.metrics.RecordTranscription(sttDuration)

	slog.Info("heard", "text", text, "seconds", sttSeconds)

	// Optimistic check before taking the lock, so transcripts arriving
	// during a cooldown don't queue up behind an in-flight response.
	if r.inCooldown(received) {
		slog.Debug("response skipped (cooldown)")
		r.metrics.RecordSkip()
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Authoritative re-check: another transcript may have finished a
	// response while we waited for the lock.
	if r.inCooldown(time.Now()) {
		r.metrics.RecordSkip()
		return
	}

	ttsStart := time.Now()
	res, err := r.tts.Speak(ctx, text)
	ttsDuration := time.Since(ttsStart)
	if err != nil {
		slog.Error("speech synthesis failed", "error", err)
		r.metrics.RecordTTSError()
		return
	}

	if res.BotResponse != "" {
		slog.Info("responding", "text", res.BotResponse)
	}

	if err := r.player.Play(ctx, res.WAV); err != nil {
		slog.Error("audio playback failed", "error", err)
		r.metrics.RecordTTSError()
		return
	}

	r.metrics.RecordResponse(ttsDuration, time.Since(received))
	r.lastResponse.Store(time.Now().UnixNano())
}
