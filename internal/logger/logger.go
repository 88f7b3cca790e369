package logger

import (
	"log/slog"
	"os"
)

// New builds the process logger. Components receive it explicitly; there
// is no package-level singleton. DEBUG=true lowers the level.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
