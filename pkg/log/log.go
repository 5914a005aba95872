// Package log configures the zerolog logger used by the pipeline.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup configures the global log level and returns a console logger.
// Level is one of "debug", "info", "warn", "error".
func Setup(level string) zerolog.Logger {
	return SetupWriter(level, os.Stderr)
}

// SetupWriter is Setup with an explicit destination, used by tests.
func SetupWriter(level string, w io.Writer) zerolog.Logger {
	zerolog.SetGlobalLevel(toLevel(level))
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	return zerolog.New(out).With().Timestamp().Logger()
}

// WithComponent returns a child logger tagged with a component name.
func WithComponent(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

func toLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
