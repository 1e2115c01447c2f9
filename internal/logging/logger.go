// Package logging provides structured logging configuration using log/slog.
//
// This package integrates with chi's RequestID middleware to propagate
// request IDs through structured log entries, and keeps a bounded in-memory
// copy of recent records for the diagnostics page.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// LevelCritical marks failures of the external application that the
// operation could not recover from. It sorts above slog.LevelError.
const LevelCritical = slog.Level(12)

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error", "critical" (default: "info")
// Format values: "text", "json" (default: "text")
//
// When diag is non-nil every record at diagLevel or above is also written to
// it as text, independently of the stdout level. That is how automation call
// traces stay available in the GUI without flooding the console.
func Setup(level, format string, diag *Buffer, diagLevel string) {
	SetupTo(os.Stdout, level, format, diag, diagLevel)
}

// SetupTo is Setup with the console output sent to w.
func SetupTo(w io.Writer, level, format string, diag *Buffer, diagLevel string) {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: replaceLevel,
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	if diag != nil {
		handler = tee{handler, slog.NewTextHandler(diag, &slog.HandlerOptions{
			Level:       parseLevel(diagLevel),
			ReplaceAttr: replaceLevel,
		})}
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "critical", "fatal":
		return LevelCritical
	default:
		return slog.LevelInfo
	}
}

// replaceLevel renders LevelCritical as CRITICAL instead of ERROR+4.
func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) > 0 {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= LevelCritical {
		a.Value = slog.StringValue("CRITICAL")
	}
	return a
}

// FromContext returns a logger enriched with request context.
//
// When called with a request context that contains a chi RequestID,
// the returned logger automatically includes request_id in all log entries.
//
// Usage:
//
//	func handleRequest(w http.ResponseWriter, r *http.Request) {
//	    logger := logging.FromContext(r.Context())
//	    logger.Info("reading table", "table", tableKey)
//	}
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}

	return logger
}

// WithFields returns a logger with additional structured fields.
//
// Usage:
//
//	logger := logging.WithFields(ctx, "table", tableKey)
//	logger.Info("edit staged", "rows", len(rows))
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}

// Critical logs msg at LevelCritical.
func Critical(ctx context.Context, logger *slog.Logger, msg string, args ...any) {
	logger.Log(ctx, LevelCritical, msg, args...)
}
