// Command talkback runs the voice client: it captures PCM audio from stdin
// (pipe a recorder in, e.g. `arecord -f S16_LE -r 16000 -c 1 -t raw`),
// streams voiced segments to the STT server, and plays back generated
// replies from the TTS server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/talkback-bot/talkback/internal/client"
	"github.com/talkback-bot/talkback/internal/config"
	"github.com/talkback-bot/talkback/internal/device"
	"github.com/talkback-bot/talkback/internal/ttsclient"
	"github.com/talkback-bot/talkback/pkg/audio"
	"github.com/talkback-bot/talkback/pkg/vad"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "talkback.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "talkback: %v\n", err)
		return 1
	}

	slog.SetDefault(newLogger(cfg.LogLevel))
	slog.Info("talkback client starting",
		"stt_url", cfg.Client.STTURL,
		"tts_url", cfg.Client.TTSURL,
		"sample_rate", cfg.Audio.SampleRate,
		"chunk", cfg.Audio.Chunk(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	chunkBytes := audio.BytesPerChunk(cfg.Audio.SampleRate, cfg.Audio.ChunkMillis)

	capture := device.NewReaderCapture(os.Stdin, chunkBytes)
	recorder := audio.NewRecorder(capture, cfg.Client.QueueMax, cfg.Audio.Chunk())

	player, err := device.NewCommandPlayer(cfg.Client.PlayerCommand)
	if err != nil {
		slog.Error("invalid player command", "command", cfg.Client.PlayerCommand, "err", err)
		return 1
	}

	metrics := client.NewMetrics()
	tts := ttsclient.New(cfg.Client.TTSURL)
	responder := client.NewResponder(tts, player, metrics, cfg.Client.ResponseCooldown())

	session := client.NewSession(client.SessionConfig{
		STTURL: cfg.Client.STTURL,
		VAD: vad.Config{
			SilenceThreshold: cfg.Client.SilenceThreshold,
			SilenceMax:       cfg.Client.SilenceMax(),
			MinUtterance:     cfg.Client.MinUtterance(),
			Cooldown:         cfg.Client.UtteranceCooldown(),
		},
		ChunkBytes:        chunkBytes,
		SilenceTailFrames: cfg.Client.SilenceTailFrames,
		MetricsInterval:   cfg.Client.MetricsInterval(),
	}, recorder, responder, metrics)

	supervisor := client.NewSupervisor(session, metrics, cfg.Client.ReconnectDelay())

	err = supervisor.Run(ctx)
	metrics.LogSummary()
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("client stopped", "err", err)
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
