package logging

import (
	"log/slog"
	"os"
)

// Init configures the default slog logger. The UI owns stdout, so
// structured logs always go to stderr.
func Init() {
	level := slog.LevelWarn // default: keep the terminal quiet unless asked

	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		switch l {
		case "dev", "development", "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn", "warning":
			level = slog.LevelWarn
		case "error", "production", "prod":
			level = slog.LevelError
		}
	}

	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}),
	)
	slog.SetDefault(logger)
}
