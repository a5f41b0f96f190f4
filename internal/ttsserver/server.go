// Package ttsserver implements the HTTP text-to-speech service: it turns a
// user utterance into a generated reply (via a language model backend) and
// synthesized speech (via piper), and exposes runtime configuration, voice
// and model discovery, personality management, and a conversation log.
package ttsserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/talkback-bot/talkback/internal/observe"
	"github.com/talkback-bot/talkback/internal/replygen"
	"github.com/talkback-bot/talkback/internal/resilience"
	"github.com/talkback-bot/talkback/internal/synth"
)

// botResponseHeader carries the generated reply text alongside the audio so
// clients can log it without decoding the WAV.
const botResponseHeader = "X-Bot-Response"

// fallbackReply is spoken when the language model returns an empty reply.
const fallbackReply = "Sorry, can you repeat that?"

// Config tunes a [Server]. Zero values pick sensible defaults.
type Config struct {
	// VoicesDir holds the piper voice models (*.onnx plus *.onnx.json).
	VoicesDir string

	// PersonalitiesDir holds system-prompt files (<name>.txt).
	PersonalitiesDir string

	// MaxTextLength caps the user text length in characters. Default: 500.
	MaxTextLength int

	// MaxConcurrent bounds simultaneous /tts requests. Default: 4.
	MaxConcurrent int

	// ConversationCap bounds the in-memory conversation log; 0 keeps
	// everything. Default: 100.
	ConversationCap int

	// FallbackReply is spoken when the model returns nothing.
	FallbackReply string

	// Initial seeds the runtime settings.
	Initial Settings
}

// Server is the HTTP TTS service.
type Server struct {
	gen      replygen.Generator
	models   replygen.ModelLister
	syn      synth.Synthesizer
	cfg      Config
	settings *RuntimeSettings
	log      *ConversationLog
	metrics  *observe.Metrics
	sem      chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithModelLister enables the /models endpoint. Without it the endpoint
// reports the backend as unable to enumerate models.
func WithModelLister(l replygen.ModelLister) Option {
	return func(s *Server) { s.models = l }
}

// New creates a Server. metrics may be nil in tests.
func New(gen replygen.Generator, syn synth.Synthesizer, cfg Config, metrics *observe.Metrics, opts ...Option) *Server {
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = 500
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.ConversationCap == 0 {
		cfg.ConversationCap = 100
	} else if cfg.ConversationCap < 0 {
		cfg.ConversationCap = 0
	}
	if cfg.FallbackReply == "" {
		cfg.FallbackReply = fallbackReply
	}
	s := &Server{
		gen:      gen,
		syn:      syn,
		cfg:      cfg,
		settings: NewRuntimeSettings(cfg.Initial),
		log:      NewConversationLog(cfg.ConversationCap),
		metrics:  metrics,
		sem:      make(chan struct{}, cfg.MaxConcurrent),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Settings exposes the runtime settings, for health checks and wiring.
func (s *Server) Settings() *RuntimeSettings { return s.settings }

// Routes returns a mux with all API endpoints registered.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tts", s.handleTTS)
	mux.HandleFunc("GET /config", s.handleGetConfig)
	mux.HandleFunc("POST /config", s.handleUpdateConfig)
	mux.HandleFunc("GET /voices", s.handleVoices)
	mux.HandleFunc("GET /models", s.handleModels)
	mux.HandleFunc("GET /conversations", s.handleGetConversations)
	mux.HandleFunc("DELETE /conversations", s.handleClearConversations)
	mux.HandleFunc("GET /personalities", s.handleListPersonalities)
	mux.HandleFunc("GET /personalities/{name}", s.handleGetPersonality)
	mux.HandleFunc("POST /personalities/{name}", s.handleSavePersonality)
	return mux
}

type ttsRequest struct {
	Text        string   `json:"text"`
	Personality string   `json:"personality"`
	Model       string   `json:"model"`
	Voice       string   `json:"voice"`
	SpeakerID   *int     `json:"speaker_id"`
	LengthScale *float64 `json:"length_scale"`
	NoiseScale  *float64 `json:"noise_scale"`
	NoiseW      *float64 `json:"noise_w"`
}

// validate checks the request-level overrides against piper's accepted
// ranges. The returned string is an error detail, empty when valid.
func (r *ttsRequest) validate(maxText int) string {
	if utf8.RuneCountInString(r.Text) > maxText {
		return "text too long"
	}
	if r.SpeakerID != nil && *r.SpeakerID < 0 {
		return "speaker_id must be >= 0"
	}
	if r.LengthScale != nil && (*r.LengthScale < 0.1 || *r.LengthScale > 2.0) {
		return "length_scale must be between 0.1 and 2.0"
	}
	if r.NoiseScale != nil && (*r.NoiseScale < 0 || *r.NoiseScale > 1) {
		return "noise_scale must be between 0.0 and 1.0"
	}
	if r.NoiseW != nil && (*r.NoiseW < 0 || *r.NoiseW > 1) {
		return "noise_w must be between 0.0 and 1.0"
	}
	return ""
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req ttsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.countTTS(r, "invalid_input")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	userText := strings.TrimSpace(req.Text)
	if userText == "" {
		s.countTTS(r, "invalid_input")
		writeError(w, http.StatusBadRequest, "empty text")
		return
	}
	if detail := req.validate(s.cfg.MaxTextLength); detail != "" {
		s.countTTS(r, "invalid_input")
		writeError(w, http.StatusBadRequest, detail)
		return
	}

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return
	}

	// Request overrides win over runtime settings for this request only.
	cur := s.settings.Snapshot()
	personality := firstNonEmpty(req.Personality, cur.Personality)
	model := firstNonEmpty(req.Model, cur.Model)
	voice := firstNonEmpty(req.Voice, cur.Voice)

	systemPrompt := s.loadPersonality(personality)

	slog.Info("generating reply", "text_chars", len(userText), "model", model, "personality", personality)

	llmStart := time.Now()
	reply, err := s.gen.GenerateReply(ctx, replygen.Request{
		UserText:     userText,
		SystemPrompt: systemPrompt,
		Model:        model,
	})
	if s.metrics != nil {
		s.metrics.LLMDuration.Record(ctx, time.Since(llmStart).Seconds())
	}
	if err != nil {
		slog.Error("reply generation failed", "error", err)
		if s.metrics != nil {
			s.metrics.RecordLLMRequest(ctx, "error")
		}
		s.countTTS(r, "llm_error")
		detail := "language model unavailable"
		if errors.Is(err, resilience.ErrCircuitOpen) {
			detail = "language model temporarily suspended (circuit breaker open)"
		} else if !errors.Is(err, replygen.ErrUnavailable) {
			detail = "reply generation failed"
		}
		writeError(w, http.StatusServiceUnavailable, detail)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordLLMRequest(ctx, "ok")
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = s.cfg.FallbackReply
	}

	if voice == "" {
		s.countTTS(r, "invalid_input")
		writeError(w, http.StatusBadRequest, "no voice selected")
		return
	}
	modelPath, configPath, err := synth.ResolveVoice(s.cfg.VoicesDir, voice)
	if err != nil {
		if errors.Is(err, synth.ErrVoiceNotFound) {
			s.countTTS(r, "invalid_input")
			writeError(w, http.StatusBadRequest, s.unknownVoiceDetail(voice))
			return
		}
		s.countTTS(r, "error")
		writeError(w, http.StatusInternalServerError, "voice lookup failed")
		return
	}

	params := synth.VoiceParams{
		ModelPath:   modelPath,
		ConfigPath:  configPath,
		SpeakerID:   cur.SpeakerID,
		LengthScale: cur.LengthScale,
		NoiseScale:  cur.NoiseScale,
		NoiseW:      cur.NoiseW,
	}
	if req.SpeakerID != nil {
		params.SpeakerID = *req.SpeakerID
	}
	if req.LengthScale != nil {
		params.LengthScale = *req.LengthScale
	}
	if req.NoiseScale != nil {
		params.NoiseScale = *req.NoiseScale
	}
	if req.NoiseW != nil {
		params.NoiseW = *req.NoiseW
	}

	synthStart := time.Now()
	wav, err := s.syn.Synthesize(ctx, reply, params)
	if s.metrics != nil {
		s.metrics.SynthDuration.Record(ctx, time.Since(synthStart).Seconds())
	}
	if err != nil {
		slog.Error("synthesis failed", "voice", voice, "error", err)
		s.countTTS(r, "synth_error")
		writeError(w, http.StatusBadGateway, "TTS backend failed")
		return
	}

	total := time.Since(start)
	if s.metrics != nil {
		s.metrics.PipelineDuration.Record(ctx, total.Seconds())
	}
	s.countTTS(r, "ok")
	slog.Info("tts complete", "bytes", len(wav), "took", total)

	s.log.Append(ConversationEntry{
		Timestamp:   time.Now(),
		UserText:    userText,
		BotResponse: reply,
		Personality: personality,
		Model:       model,
		Voice:       voice,
		Duration:    math.Round(total.Seconds()*100) / 100,
	})

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", "attachment; filename=tts.wav")
	w.Header().Set(botResponseHeader, sanitizeHeaderValue(reply))
	w.Write(wav)
}

func (s *Server) countTTS(r *http.Request, status string) {
	if s.metrics != nil {
		s.metrics.RecordTTSRequest(r.Context(), status)
	}
}

// loadPersonality reads the system prompt for name; a missing or unreadable
// file is logged and treated as no prompt, matching the permissive config
// endpoint that accepts any personality name.
func (s *Server) loadPersonality(name string) string {
	if name == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(s.cfg.PersonalitiesDir, name+".txt"))
	if err != nil {
		slog.Warn("failed to load personality", "personality", name, "error", err)
		return ""
	}
	return strings.TrimSpace(string(data))
}

// sanitizeHeaderValue makes reply text safe for an HTTP header: newlines
// become spaces and the value is capped at 500 characters.
func sanitizeHeaderValue(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > 500 {
		return string(r[:497]) + "..."
	}
	return s
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
