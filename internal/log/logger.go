// Package log provides the structured logger used by the engine, stores and
// command line tools.
package log

import (
	"context"
	"strings"
)

type contextKey string

const loggerKey contextKey = "seqedit.logger"

const defaultLevel = LevelWarn

// Logger is the logging surface used across seqedit. It mirrors log/slog so
// other backends can be adapted.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	// With returns a Logger that adds the given attributes to every record.
	With(args ...any) Logger
}

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// Ctx returns the logger carried by ctx or a default structured logger.
func Ctx(ctx context.Context) Logger {
	if ctx == nil {
		return New(defaultLevel)
	}
	if logger, ok := ctx.Value(loggerKey).(Logger); ok {
		return logger
	}
	return New(defaultLevel)
}

// LevelFromString parses debug, info, warn or error; anything else maps to
// the default level.
func LevelFromString(value string) Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return defaultLevel
	}
}
