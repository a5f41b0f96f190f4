// Command stt-server runs the websocket transcription service: clients
// stream PCM16LE audio and receive whisper transcripts per utterance.
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
	"github.com/talkback-bot/talkback/internal/sttserver"
	"github.com/talkback-bot/talkback/internal/transcribe"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "talkback.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stt-server: %v\n", err)
		return 1
	}

	slog.SetDefault(newLogger(cfg.LogLevel))
	slog.Info("stt-server starting",
		"listen_addr", cfg.STT.ListenAddr,
		"model", cfg.STT.ModelPath,
		"sample_rate", cfg.Audio.SampleRate,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "talkback-stt",
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

	var transcriber transcribe.Transcriber
	var whisper *transcribe.Whisper
	if cfg.STT.ModelPath == "" {
		slog.Warn("no whisper model configured; connections will be rejected until one is set")
	} else {
		whisper, err = transcribe.New(cfg.STT.ModelPath, transcribe.WithLanguage(cfg.STT.Language))
		if err != nil {
			slog.Error("failed to load whisper model", "path", cfg.STT.ModelPath, "err", err)
			return 1
		}
		defer whisper.Close()
		transcriber = whisper
	}

	metrics := observe.DefaultMetrics()
	srv := sttserver.New(transcriber, sttserver.BufferConfig{
		SampleRate:       cfg.Audio.SampleRate,
		SilenceThreshold: cfg.STT.SilenceThreshold,
		SilenceMax:       cfg.STT.SilenceMax(),
		MinUtterance:     cfg.STT.MinUtterance(),
		MaxUtterance:     cfg.STT.MaxUtterance(),
		MaxBuffer:        cfg.STT.MaxBuffer(),
	}, metrics)

	mux := http.NewServeMux()
	mux.Handle(sttserver.Path, srv)
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(
		health.Model("whisper", srv.Ready),
	).Register(mux)

	httpSrv := &http.Server{
		Addr:    cfg.STT.ListenAddr,
		Handler: observe.Middleware(metrics)(mux),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server ready", "addr", cfg.STT.ListenAddr)
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

// loadConfig loads the file at path; a missing file at the default location
// falls back to built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
