// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/warp/points-ledger/config"
)

// Init builds a logger from cfg, installs it as log.Logger and returns it.
// Unknown levels fall back to info.
func Init(cfg config.LogConfig) zerolog.Logger {
	var out io.Writer = os.Stdout
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	logger := New(out, cfg.Level)
	zerolog.SetGlobalLevel(logger.GetLevel())
	log.Logger = logger
	return logger
}

// New returns a timestamped logger writing to out at the given level.
func New(out io.Writer, level string) zerolog.Logger {
	return zerolog.New(out).Level(ParseLevel(level)).With().Timestamp().Logger()
}

func ParseLevel(level string) zerolog.Level {
	if v := strings.TrimSpace(level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			return parsed
		}
	}
	return zerolog.InfoLevel
}
