// Package logger provides a standardized logging approach for the bezos service
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Logger levels
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Output formats
const (
	FormatJSON = "json"
	FormatText = "text"
)

// New creates a new structured logger with the given options
func New(opts ...Option) *slog.Logger {
	config := defaultConfig()
	for _, opt := range opts {
		opt(config)
	}

	handlerOpts := &slog.HandlerOptions{
		Level: config.level,
	}

	var handler slog.Handler
	if config.format == FormatText {
		handler = slog.NewTextHandler(config.output, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(config.output, handlerOpts)
	}

	return slog.New(handler)
}

type config struct {
	level  slog.Level
	format string
	output io.Writer
}

func defaultConfig() *config {
	return &config{
		level:  LevelInfo,
		format: FormatJSON,
		output: os.Stdout,
	}
}

// Option configures the logger
type Option func(*config)

// WithLevel sets the minimum log level
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithOutput sets the output writer
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		c.output = w
	}
}

// WithFormat selects the handler, "json" (default) or "text"
func WithFormat(format string) Option {
	return func(c *config) {
		c.format = strings.ToLower(strings.TrimSpace(format))
	}
}

// ParseLevel converts a level name such as "debug" or "WARN" into a slog.Level
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// WithContext returns a logger carrying the request id set by chi's RequestID middleware
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := middleware.GetReqID(ctx); id != "" {
		return logger.With("request_id", id)
	}
	return logger
}
