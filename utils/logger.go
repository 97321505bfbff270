package utils

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kubolab-io/takkapp-v1-sub000/config"
)

// NewLogger builds the process logger from the logger section.
func NewLogger(conf *config.Config) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(conf.Logger.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	var out io.Writer = os.Stderr
	if conf.Logger.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("app", conf.AppName).
		Logger(), nil
}
