package app

import (
	"io"
	"log/slog"
)

// newLogger builds the run's logger from the validated --log-level and
// --log-format values. It never touches the global default logger, so each
// App keeps its output on its own writer.
func newLogger(level, format string, outW io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}

// parseLogLevel maps the CLI level names onto slog levels. Unknown names
// fall back to info: the resolver already validated user input, so the
// fallback only matters for programmatic Config construction.
func parseLogLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
