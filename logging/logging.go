// Package logging constructs the process-scoped zerolog logger used across
// the runtime. The logger is created once in main and passed down; packages
// never reach for a global.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds a logger writing to out at the given level. Unknown level
// strings fall back to "info". Output is zerolog's console format since the
// consumer is a terminal program; callers that must keep a stream clean
// (the ACP front end owns stdout) pass a file or stderr.
func New(level string, out io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	cw := zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	return zerolog.New(cw).Level(lvl).With().Timestamp().Logger()
}

// Nop returns a disabled logger for tests and for callers that opt out.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
