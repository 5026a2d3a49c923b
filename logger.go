package xmatch

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with xmatch-specific context.
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
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithJob adds a job field to the logger.
func (l *Logger) WithJob(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("job", id),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogMatch logs a match operation.
func (l *Logger) LogMatch(ctx context.Context, primary, secondary, pairs int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "match failed",
			"primary", primary,
			"secondary", secondary,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "match completed",
		"primary", primary,
		"secondary", secondary,
		"pairs", pairs,
	)
}

// LogAssociate logs the outcome of a truth association.
func (l *Logger) LogAssociate(ctx context.Context, matched, total int, fraction float64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "association failed",
			"total", total,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "association completed",
		"matched", matched,
		"total", total,
		"fraction", fraction,
	)
}

// LogJob logs a batch job outcome.
func (l *Logger) LogJob(ctx context.Context, id string, skipped bool, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "job failed",
			"job", id,
			"error", err,
		)
	case skipped:
		l.InfoContext(ctx, "job skipped",
			"job", id,
			"reason", "already recorded",
		)
	default:
		l.DebugContext(ctx, "job completed",
			"job", id,
		)
	}
}

// LogBatch logs the outcome of a batch run.
func (l *Logger) LogBatch(ctx context.Context, runID string, jobs, skipped, failed int) {
	level := slog.LevelInfo
	if failed > 0 {
		level = slog.LevelWarn
	}
	l.Log(ctx, level, "batch completed",
		"run", runID,
		"jobs", jobs,
		"skipped", skipped,
		"failed", failed,
	)
}
