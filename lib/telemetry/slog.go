package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// InitSlog installs the default text logger on stderr. FINAGG_LOG_LEVEL
// (debug, info, warn, error) overrides the level picked by `debug`.
func InitSlog(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	switch strings.ToLower(os.Getenv("FINAGG_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
