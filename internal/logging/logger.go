package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithFeed returns a logger with the recipient feed attached.
// Use this for all logging within a feed query.
func WithFeed(recipient string) *slog.Logger {
	return slog.With("feed", recipient)
}

// WithSource returns a logger scoped to an ingress source.
func WithSource(logger *slog.Logger, source string) *slog.Logger {
	return logger.With("source", source)
}
