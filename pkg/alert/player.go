package alert

import (
	"context"
	"log/slog"
)

// Player plays an alert profile. Implementations may fail (no audio
// device, closed socket); the Detector logs and drops such errors.
type Player interface {
	Play(ctx context.Context, profile int) error
}

// PlayerFunc adapts a function to Player.
type PlayerFunc func(ctx context.Context, profile int) error

// Play calls f.
func (f PlayerFunc) Play(ctx context.Context, profile int) error {
	return f(ctx, profile)
}

// LogPlayer only records the cue in the log. It suits headless displays
// and the CLI.
type LogPlayer struct {
	Logger *slog.Logger
}

// Play logs the profile that would sound.
func (p LogPlayer) Play(ctx context.Context, profile int) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	prof, err := Lookup(profile)
	logger.InfoContext(ctx, "alert", "profile", profile, "name", prof.Name)
	return err
}
