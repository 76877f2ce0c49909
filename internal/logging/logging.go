// Package logging configures the process-wide zerolog logger for the
// binaries in cmd.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup writes human-readable output to stderr at level. An unknown level
// falls back to info and says so. zerolog.Ctx on a context without a logger
// returns the global one afterwards.
func Setup(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Warn().Str("level", level).Msg("unknown log level, using info")
	} else {
		zerolog.SetGlobalLevel(parsed)
	}

	zerolog.DefaultContextLogger = &log.Logger
}
