// Package logger provides structured logging using zerolog.
package logger

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/beachhead/internal/config"
)

type contextKey string

const requestIDKey contextKey = "request_id"

const milliTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// maxBodyLog caps how much of a request or response body is logged.
const maxBodyLog = 1000

// Init installs the global logger. Dev mode writes coloured console lines;
// otherwise each line is a JSON object. LogFile, when set, receives a copy.
func Init(cfg *config.Config) {
	zerolog.TimeFieldFormat = milliTimeFormat
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	zerolog.SetGlobalLevel(parseLevel(cfg.LogLevel))

	log.Logger = New(output(cfg), cfg.Dev)
	log.Info().
		Str("level", zerolog.GlobalLevel().String()).
		Bool("dev", cfg.Dev).
		Msg("Logger initialized")
}

// New builds a logger writing to w. Console formatting pads the caller so
// messages line up.
func New(w io.Writer, console bool) zerolog.Logger {
	if !console {
		return zerolog.New(w).With().Timestamp().Caller().Logger()
	}
	const callerWidth = 30
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: milliTimeFormat}
	cw.FormatCaller = func(i any) string {
		path, _ := i.(string)
		path = filepath.Base(path)
		if len(path) >= callerWidth {
			return path[len(path)-callerWidth:]
		}
		return path + strings.Repeat(" ", callerWidth-len(path))
	}
	return zerolog.New(cw).With().Timestamp().Caller().Logger()
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return level
}

func output(cfg *config.Config) io.Writer {
	if cfg.LogFile == "" {
		return os.Stdout
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log file %s: %v\n", cfg.LogFile, err)
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, f)
}

// Get returns the global logger instance.
func Get() zerolog.Logger {
	return log.Logger
}

// NewRequestID returns a random 8-character alphanumeric ID.
func NewRequestID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req%06d", time.Now().UnixNano()%1000000)
	}
	for i := range b {
		b[i] = charset[b[i]%byte(len(charset))]
	}
	return string(b)
}

// WithRequestID returns a new context with the given request ID stored.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the request ID from context, or empty string.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ForRequest returns a logger enriched with the request ID from context.
func ForRequest(ctx context.Context) zerolog.Logger {
	id := RequestIDFromContext(ctx)
	if id == "" {
		return log.Logger
	}
	return log.Logger.With().Str("requestId", id).Logger()
}

// ForBattle returns a logger tagged with a battle and, when present, the
// request that touched it.
func ForBattle(ctx context.Context, battleID string) zerolog.Logger {
	return ForRequest(ctx).With().Str("battleId", battleID).Logger()
}

// LogRequest logs a request body at debug level.
func LogRequest(l zerolog.Logger, body []byte) {
	logBody(l, "request_body", "Request body", body)
}

// LogResponse logs a response body at debug level.
func LogResponse(l zerolog.Logger, body []byte) {
	logBody(l, "response", "Response body", body)
}

func logBody(l zerolog.Logger, field, msg string, body []byte) {
	if len(body) == 0 {
		return
	}
	ev := l.Debug()
	if len(body) > maxBodyLog {
		body = body[:maxBodyLog]
		ev = ev.Bool("truncated", true)
	}
	ev.Str(field, string(body)).Msg(msg)
}
