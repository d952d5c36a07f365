package cmd

import (
	"log/slog"
	"os"
	"time"
)

// shutdownGrace bounds how long cleanup (telemetry flush, health server
// drain) is allowed to take during process exit.
const shutdownGrace = 2 * time.Second

// newLogger builds the process-wide structured logger from a textual
// level name, defaulting to info on an empty or unrecognized value.
// Logs go to stderr so stdout stays reserved for the MCP stdio transport.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
