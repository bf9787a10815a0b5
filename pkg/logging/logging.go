// Package logging configures the process-wide structured logger used by
// every orchestration core component. It mirrors the teacher's slog-based
// logger: a parsed level, a default handler, and small helpers for
// attaching request/agent context.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// ParseLevel converts a string log level to slog.Level. Unknown strings
// fall back to Info, matching the teacher's permissive parser.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a slog.Logger writing JSON to os.Stderr at the given level.
func New(levelStr string) *slog.Logger {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: ParseLevel(levelStr)})
	return slog.New(h)
}

// WithRequest returns a child logger annotated with the request id, the
// attribute every downstream log line in a single orchestrated request
// carries for correlation (spec §4.12/§4.13).
func WithRequest(l *slog.Logger, requestID string) *slog.Logger {
	return l.With(slog.String("request_id", requestID))
}

// WithAgent further annotates a request-scoped logger with the agent id.
func WithAgent(l *slog.Logger, agentID string) *slog.Logger {
	return l.With(slog.String("agent_id", agentID))
}
