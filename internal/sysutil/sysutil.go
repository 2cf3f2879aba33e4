// Package sysutil holds process-level helpers used by the server entrypoint:
// logger bootstrap and small env conveniences.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetLogLevel configures the global zerolog level from a string value.
// Supported values (case-insensitive): debug, info, warn, error, fatal, panic.
// Anything else selects info.
func SetLogLevel(lvl string) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// LoggerOptions controls InitLogger.
type LoggerOptions struct {
	Level   string
	Pretty  bool // human-readable console output instead of JSON
	Service string
	Version string
	Out     io.Writer // defaults to os.Stdout
}

// InitLogger builds the process logger, installs it as the global zerolog
// logger and returns it.
func InitLogger(o LoggerOptions) zerolog.Logger {
	SetLogLevel(o.Level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var w io.Writer = os.Stdout
	if o.Out != nil {
		w = o.Out
	}
	if o.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	lg := zerolog.New(w).With().
		Timestamp().
		Str("service", FirstNonEmpty(o.Service, "askmynotes-backend")).
		Str("version", FirstNonEmpty(o.Version, "dev")).
		Logger()
	log.Logger = lg
	return lg
}

// FirstNonEmpty returns the first value that is not blank, or "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
