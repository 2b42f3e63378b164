// Package logging provides the application's structured diagnostic
// logger, distinct from the Access Log Sink (spec §4.8): this logger
// reports bind failures, gitignore compile errors, and recovered
// panics, not per-request completion lines.
package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// Format selects the handler backing a Logger.
type Format string

const (
	FormatText Format = "text" // colorized, development-friendly
	FormatJSON Format = "json" // production/non-TTY
)

// Config configures a Logger, mirroring the teacher's
// Development/ProductionLoggerConfig constructor pair.
type Config struct {
	Level  slog.Level
	Format Format
	Output *os.File
}

// DevelopmentConfig favors a colorized, human-readable handler at
// Debug level.
func DevelopmentConfig() Config {
	return Config{Level: slog.LevelDebug, Format: FormatText, Output: os.Stderr}
}

// ProductionConfig favors structured JSON at Info level, suitable for
// log aggregation.
func ProductionConfig() Config {
	return Config{Level: slog.LevelInfo, Format: FormatJSON, Output: os.Stderr}
}

// Logger wraps *slog.Logger with the application's convenience
// methods, matching the teacher's Loggerlog wrapper shape.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from cfg. FormatText uses
// github.com/lmittmann/tint for colorized output, replacing the
// teacher's hand-rolled ANSI ColorHandler with the pack's own
// dedicated coloring library.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: cfg.Level})
	default:
		handler = tint.NewHandler(out, &tint.Options{Level: cfg.Level, TimeFormat: "15:04:05"})
	}

	return &Logger{Logger: slog.New(handler)}
}

// WithContext returns a child logger with request-scoped attributes,
// mirroring the teacher's context-attached logging pattern.
func (l *Logger) WithContext(_ context.Context, args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

var defaultLogger = New(ProductionConfig())

// SetDefault replaces the package-level default logger.
func SetDefault(l *Logger) { defaultLogger = l }

// Default returns the package-level default logger.
func Default() *Logger { return defaultLogger }
