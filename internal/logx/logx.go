package logx

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds the service logger. LOG_LEVEL controls verbosity (default info),
// LOG_PRETTY=1 switches to console output for local runs.
func New(service string) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var l zerolog.Logger
	if os.Getenv("LOG_PRETTY") == "1" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		l = zerolog.New(os.Stderr)
	}
	return l.Level(level).With().Timestamp().Str("service", service).Logger()
}
