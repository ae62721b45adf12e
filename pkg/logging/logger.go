// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Str("service", "pokecache").Logger()
	log.Logger = logger

	// zerolog.Ctx falls back to this logger when a context carries none.
	zerolog.DefaultContextLogger = &log.Logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// FromContext returns the request-scoped logger stored in ctx, or the global
// logger when none was attached.
func FromContext(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key, TTL)
//   - Upstream request URLs and status codes
//   - Chart file paths
//
// Info: Normal operation events
//   - Successful ingests
//   - Height comparisons rendered
//   - Server startup/shutdown
//
// Warn: Conditions that don't prevent operation
//   - Creature not found upstream
//   - Comparison requested before ingest
//   - Inbound rate limit rejections
//
// Error: Error conditions requiring attention
//   - Cache backend unreachable
//   - Upstream API unreachable
//   - Malformed cached records
//   - Configuration errors
//
// Context Fields:
//   - component: emitting package (pokeapi, cache, pipeline, server, ...)
//   - request_id: inbound request ID
//   - name: normalized creature name
//   - key: cache key
//   - status: HTTP status code
//   - duration: request or operation duration
//   - error_class: upstream error classification
//   - height_m: creature height in metres
