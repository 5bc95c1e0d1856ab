// Package logging configures the process-wide zerolog logger used by every
// other package via the global log.Logger.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs a console-writer logger at the given level and makes it
// the package-global logger every other package's "github.com/rs/zerolog/log"
// import writes through. levelName is case-insensitive; an unrecognised
// value falls back to "info".
func Setup(levelName string) {
	level, err := zerolog.ParseLevel(strings.ToLower(levelName))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
}
