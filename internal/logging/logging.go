// Package logging builds the slog logger used across ptybridge.
package logging

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// Option configures a logger.
type Option func(*config)

type config struct {
	level   slog.Level
	outputs []io.Writer
}

// WithDebug lowers the level to debug.
func WithDebug(debug bool) Option {
	return func(cfg *config) {
		if debug {
			cfg.level = slog.LevelDebug
		}
	}
}

// WithOutput adds a log destination. Defaults to stderr when none given.
func WithOutput(w io.Writer) Option {
	return func(cfg *config) {
		cfg.outputs = append(cfg.outputs, w)
	}
}

// New creates a logger that fans out to every configured output.
func New(opts ...Option) *slog.Logger {
	cfg := &config{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.outputs) == 0 {
		cfg.outputs = []io.Writer{os.Stderr}
	}

	handlers := make([]slog.Handler, 0, len(cfg.outputs))
	for _, out := range cfg.outputs {
		handlers = append(handlers, slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.level}))
	}
	if len(handlers) == 1 {
		return slog.New(handlers[0])
	}

	return slog.New(slogmulti.Fanout(handlers...))
}
