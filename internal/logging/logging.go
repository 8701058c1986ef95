package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger and returns it.
//
// format: "console" (human-readable) or "json" (structured).
// Output goes to stderr; stdout is reserved for command output.
func Setup(level, format string) zerolog.Logger {
	return SetupWithWriter(level, format, os.Stderr)
}

// SetupWithWriter is Setup with an explicit destination.
func SetupWithWriter(level, format string, w io.Writer) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(level))

	out := w
	if strings.ToLower(format) != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}

// ParseLevel converts a string log level, returning InfoLevel for unrecognized values.
func ParseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
