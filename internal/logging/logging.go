// Package logging builds the zerolog loggers shared by the CLI and its packages.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Format selects the log encoding.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// ParseLevel maps a level name to a zerolog level. Unknown or empty names
// default to info; "off" disables logging.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "disabled":
		return zerolog.Disabled
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New returns a logger writing to stderr.
func New(level string, format Format) zerolog.Logger {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter returns a logger writing to w.
func NewWithWriter(w io.Writer, level string, format Format) zerolog.Logger {
	out := w
	if format != FormatJSON {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).Level(ParseLevel(level)).With().Timestamp().Logger()
}
