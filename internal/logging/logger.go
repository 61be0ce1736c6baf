package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// contextKey is the type for context keys
type contextKey string

const (
	// RequestIDKey is the context key for request IDs
	RequestIDKey contextKey = "request_id"
	// UsernameKey is the context key for the logged-in dashboard user
	UsernameKey contextKey = "username"
	// SessionKey is the context key for the dashboard session id
	SessionKey contextKey = "session"
)

// Logger wraps zerolog for application logging
type Logger struct {
	logger zerolog.Logger
}

// Config holds logging configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output io.Writer
}

// New creates a new logger with the given configuration
func New(cfg Config) *Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "text" {
		// Pretty console output for development
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).
			Level(level).
			With().
			Timestamp().
			Logger()
	} else {
		// JSON output for production
		logger = zerolog.New(output).
			Level(level).
			With().
			Timestamp().
			Logger()
	}

	return &Logger{logger: logger}
}

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(logger *Logger) {
	log.Logger = logger.logger
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.logger.Warn().Msg(msg)
}

// Error logs an error message
func (l *Logger) Error(err error, msg string) {
	l.logger.Error().Err(err).Msg(msg)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(err error, msg string) {
	l.logger.Fatal().Err(err).Msg(msg)
}

// WithContext returns a logger carrying the request id, username, and
// session id when the context has them.
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.logger.With()

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		logger = logger.Str("request_id", requestID)
	}
	if username, ok := ctx.Value(UsernameKey).(string); ok {
		logger = logger.Str("username", username)
	}
	if session, ok := ctx.Value(SessionKey).(string); ok {
		logger = logger.Str("session", session)
	}

	contextLogger := logger.Logger()
	return &contextLogger
}

// HTTPRequest logs HTTP request details
func (l *Logger) HTTPRequest(method, path string, statusCode int, duration time.Duration, err error) {
	event := l.logger.Info()
	if statusCode >= 400 {
		event = l.logger.Error()
	}

	event.
		Str("method", method).
		Str("path", path).
		Int("status_code", statusCode).
		Dur("duration_ms", duration).
		Err(err).
		Msg("HTTP request")
}

// UpstreamRequest logs a call to the knowledge base server
func (l *Logger) UpstreamRequest(method, path string, statusCode, attempts int, duration time.Duration, err error) {
	event := l.logger.Debug()
	if err != nil {
		event = l.logger.Error()
	}

	event.
		Str("method", method).
		Str("path", path).
		Int("status_code", statusCode).
		Int("attempts", attempts).
		Dur("duration_ms", duration).
		Err(err).
		Msg("Upstream request")
}
