package lexgo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with lexgo-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithSegment adds a segment id field to the logger.
func (l *Logger) WithSegment(id uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("segment", id),
	}
}

// LogAdd logs a document add operation.
func (l *Logger) LogAdd(ctx context.Context, doc uint32, tokens int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add failed",
			"doc", doc,
			"tokens", tokens,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "add completed",
			"doc", doc,
			"tokens", tokens,
		)
	}
}

// LogFlush logs a segment flush operation.
func (l *Logger) LogFlush(ctx context.Context, segmentID uint64, docs uint32, err error) {
	if err != nil {
		l.ErrorContext(ctx, "flush failed",
			"segment", segmentID,
			"docs", docs,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "flush completed",
			"segment", segmentID,
			"docs", docs,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, query string, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"query", query,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"query", query,
			"results", resultsFound,
		)
	}
}

// LogDelete logs a document delete operation.
func (l *Logger) LogDelete(ctx context.Context, id uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"id", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete completed",
			"id", id,
		)
	}
}

// LogMerge logs a segment merge operation.
func (l *Logger) LogMerge(ctx context.Context, sources int, segmentID uint64, docs uint32, err error) {
	if err != nil {
		l.ErrorContext(ctx, "merge failed",
			"sources", sources,
			"segment", segmentID,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "merge completed",
			"sources", sources,
			"segment", segmentID,
			"docs", docs,
		)
	}
}

// LogOpen logs an index open operation.
func (l *Logger) LogOpen(ctx context.Context, segments int, docs uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index opened",
			"segments", segments,
			"docs", docs,
		)
	}
}
