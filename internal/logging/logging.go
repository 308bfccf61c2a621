// Package logging installs the process-wide slog logger, backed by zerolog.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rs/zerolog"
	slogzerolog "github.com/samber/slog-zerolog/v2"
)

type Options struct {
	Development bool
	// Format is "json" or "console". Empty picks console in development and json otherwise.
	Format string
	Output io.Writer
}

func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	format := opts.Format
	if format == "" {
		format = "json"
		if opts.Development {
			format = "console"
		}
	}
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	level := slog.LevelInfo
	if opts.Development {
		level = slog.LevelDebug
	}

	zl := zerolog.New(out).With().Timestamp().Logger()
	return slog.New(slogzerolog.Option{Level: level, Logger: &zl}.NewZerologHandler())
}

// Init builds the logger and makes it the slog default.
func Init(opts Options) *slog.Logger {
	logger := New(opts)
	slog.SetDefault(logger)
	return logger
}
