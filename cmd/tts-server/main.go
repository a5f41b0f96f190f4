// Command tts-server runs the HTTP text-to-speech service: POST /tts turns
// a user utterance into a generated reply and synthesized speech, alongside
// runtime configuration, voice/model discovery, and conversation endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talkback-bot/talkback/internal/config"
	"github.com/talkback-bot/talkback/internal/health"
	"github.com/talkback-bot/talkback/internal/observe"
	"github.com/talkback-bot/talkback/internal/replygen"
	"github.com/talkback-bot/talkback/internal/resilience"
	"github.com/talkback-bot/talkback/internal/synth"
	"github.com/talkback-bot/talkback/internal/ttsserver"
)

func main() {
	os.Exit(run())
}

// logLevel is shared with the config watcher so a log_level change in the
// file takes effect without a restart.
var logLevel = new(slog.LevelVar)

func run() int {
	configPath := flag.String("config", "talkback.yaml", "path to the YAML configuration file")
	flag.Parse()

	// The watcher owns the config when the file exists; otherwise run on
	// defaults without hot reload.
	var cfg *config.Config
	var watcher *config.Watcher

	cfg, err := config.Load(*configPath)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		cfg = config.Default()
	default:
		fmt.Fprintf(os.Stderr, "tts-server: %v\n", err)
		return 1
	}

	logLevel.Set(slogLevel(cfg.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
	slog.Info("tts-server starting",
		"listen_addr", cfg.TTS.ListenAddr,
		"backend", cfg.TTS.Backend,
		"model", cfg.TTS.Model,
		"voices_dir", cfg.TTS.VoicesDir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "talkback-tts",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         "llm",
		MaxFailures:  cfg.TTS.BreakerFailMax,
		ResetTimeout: cfg.TTS.BreakerReset(),
	})

	backend, checkers, err := buildBackend(cfg)
	if err != nil {
		slog.Error("failed to build reply backend", "err", err)
		return 1
	}
	gen := replygen.NewResilient(backend, breaker, replygen.RetryConfig{
		Attempts: cfg.TTS.RetryAttempts,
		Backoff:  cfg.TTS.RetryBackoff(),
	})

	var piperOpts []synth.PiperOption
	if cfg.TTS.PiperBinary != "" {
		piperOpts = append(piperOpts, synth.WithBinary(cfg.TTS.PiperBinary))
	}
	piper := synth.NewPiper(piperOpts...)

	metrics := observe.DefaultMetrics()
	var srvOpts []ttsserver.Option
	if lister, ok := backend.(replygen.ModelLister); ok {
		srvOpts = append(srvOpts, ttsserver.WithModelLister(lister))
	}
	srv := ttsserver.New(gen, piper, ttsserver.Config{
		VoicesDir:        cfg.TTS.VoicesDir,
		PersonalitiesDir: cfg.TTS.PersonalitiesDir,
		MaxTextLength:    cfg.TTS.MaxTextLength,
		MaxConcurrent:    cfg.TTS.MaxConcurrent,
		ConversationCap:  cfg.TTS.ConversationLogMax,
		Initial:          initialSettings(cfg.TTS),
	}, metrics, srvOpts...)

	// Hot-reload synthesis settings and log level from the config file.
	watcher, err = config.NewWatcher(*configPath, func(old, new *config.Config) {
		applyReload(srv, old, new)
	})
	if err != nil {
		slog.Debug("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	mux := srv.Routes()
	mux.Handle("GET /metrics", promhttp.Handler())
	checkers = append(checkers, health.Dir("voices", cfg.TTS.VoicesDir))
	health.New(checkers...).Register(mux)

	httpSrv := &http.Server{
		Addr:    cfg.TTS.ListenAddr,
		Handler: observe.Middleware(metrics)(mux),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server ready", "addr", cfg.TTS.ListenAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			return 1
		}
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received, stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildBackend constructs the configured reply generator plus its health
// checkers.
func buildBackend(cfg *config.Config) (replygen.Generator, []health.Checker, error) {
	switch cfg.TTS.Backend {
	case config.BackendOpenAI:
		var opts []replygen.OpenAIOption
		if cfg.TTS.OpenAIBaseURL != "" {
			opts = append(opts, replygen.WithOpenAIBaseURL(cfg.TTS.OpenAIBaseURL))
		}
		opts = append(opts, replygen.WithOpenAITimeout(cfg.TTS.LLMTimeout()))
		gen, err := replygen.NewOpenAI(cfg.TTS.OpenAIAPIKey, cfg.TTS.Model, opts...)
		if err != nil {
			return nil, nil, err
		}
		return gen, nil, nil

	default:
		var opts []replygen.OllamaOption
		if cfg.TTS.OllamaURL != "" {
			opts = append(opts, replygen.WithOllamaBaseURL(cfg.TTS.OllamaURL))
		}
		opts = append(opts, replygen.WithOllamaTimeout(cfg.TTS.LLMTimeout()))
		gen, err := replygen.NewOllama(cfg.TTS.Model, opts...)
		if err != nil {
			return nil, nil, err
		}
		return gen, []health.Checker{health.Backend("ollama", gen)}, nil
	}
}

func initialSettings(tts config.TTSConfig) ttsserver.Settings {
	return ttsserver.Settings{
		Personality: tts.Personality,
		Model:       tts.Model,
		Voice:       tts.Voice,
		SpeakerID:   tts.SpeakerID,
		LengthScale: tts.LengthScale,
		NoiseScale:  tts.NoiseScale,
		NoiseW:      tts.NoiseW,
	}
}

// applyReload pushes hot-reloadable changes from a config file edit into
// the running server.
func applyReload(srv *ttsserver.Server, old, new *config.Config) {
	d := config.Diff(old, new)
	if d.LogLevelChanged {
		logLevel.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.SynthesisChanged {
		s := initialSettings(new.TTS)
		srv.Settings().Apply(ttsserver.SettingsPatch{
			Personality: &s.Personality,
			Model:       &s.Model,
			Voice:       &s.Voice,
			SpeakerID:   &s.SpeakerID,
			LengthScale: &s.LengthScale,
			NoiseScale:  &s.NoiseScale,
			NoiseW:      &s.NoiseW,
		})
	}
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
