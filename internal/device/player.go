package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/talkback-bot/talkback/pkg/audio"
)

// Compile-time assertion that CommandPlayer satisfies audio.Player.
var _ audio.Player = (*CommandPlayer)(nil)

// CommandPlayer plays WAV clips by piping them to an external command, e.g.
// "aplay -q -". A fresh process is spawned per clip and Play blocks until
// it exits.
type CommandPlayer struct {
	name string
	args []string
}

// NewCommandPlayer parses a shell-style command line into a player. The
// command must read WAV data from stdin.
func NewCommandPlayer(command string) (*CommandPlayer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("device: empty player command")
	}
	return &CommandPlayer{name: fields[0], args: fields[1:]}, nil
}

// Play runs the command with wav on stdin, blocking until playback ends or
// ctx is cancelled.
func (p *CommandPlayer) Play(ctx context.Context, wav []byte) error {
	cmd := exec.CommandContext(ctx, p.name, p.args...)
	cmd.Stdin = bytes.NewReader(wav)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("device: playback cancelled: %w", ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("device: %s failed: %s: %w", p.name, msg, err)
		}
		return fmt.Errorf("device: %s failed: %w", p.name, err)
	}
	return nil
}
