package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the application logger. format "console" gives human-readable
// output; anything else is JSON. Unknown levels fall back to info.
func New(level, format string) zerolog.Logger {
	return NewWithWriter(level, format, os.Stdout)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(level, format string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	out := w
	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime}
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "surface-temperature").
		Logger()
}
