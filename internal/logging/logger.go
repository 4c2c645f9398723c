package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger to write to w, which for hook
// commands must not be stdout. Debug enables debug records; otherwise only
// warnings and errors are written. SUPERMEMORY_LOG_FORMAT=json selects JSON output.
func Init(w io.Writer, debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("SUPERMEMORY_LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// ForSession returns a logger with the session id attached.
func ForSession(sessionID string) *slog.Logger {
	return slog.With("session_id", sessionID)
}
