package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a configuration string to a slog.Level. Unknown values
// fall back to info so a typo in config never silences logging entirely.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// SetupLogger configures the global slog default logger from the logging
// section of the application config.
//
// format "json" selects JSONHandler (for production log pipelines); anything
// else selects TextHandler (for local development). The configured logger is
// installed as the default so slog.Info/Warn/Error calls elsewhere use it
// without carrying a *slog.Logger around.
func SetupLogger(format, level string) {
	lvl := ParseLevel(level)

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug, // include file:line only when debugging
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialised", "format", format, "level", lvl.String())
}
