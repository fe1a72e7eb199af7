package docgo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with docgo-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithCollection adds a collection field to the logger.
func (l *Logger) WithCollection(collection string) *Logger {
	return &Logger{
		Logger: l.Logger.With("collection", collection),
	}
}

// WithTxID adds a transaction id field to the logger.
func (l *Logger) WithTxID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("tx", id),
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, collection, id string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"collection", collection,
			"id", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "insert completed",
			"collection", collection,
			"id", id,
		)
	}
}

// LogFind logs a find operation.
func (l *Logger) LogFind(ctx context.Context, collection string, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "find failed",
			"collection", collection,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "find completed",
			"collection", collection,
			"count", count,
		)
	}
}

// LogSave logs a save operation.
func (l *Logger) LogSave(ctx context.Context, collection string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"collection", collection,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "save completed",
			"collection", collection,
		)
	}
}
