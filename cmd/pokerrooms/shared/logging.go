package shared

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// SetupLogger builds the root logger. level is a log level name and is
// overridden by debug; format is "text" or "json".
func SetupLogger(level, format string, debug, noColor bool) *log.Logger {
	return newLogger(os.Stderr, level, format, debug, noColor)
}

func newLogger(w io.Writer, level, format string, debug, noColor bool) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	if debug {
		lvl = log.DebugLevel
	}

	opts := log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	}
	if format == "json" {
		opts.Formatter = log.JSONFormatter
		opts.TimeFormat = time.RFC3339Nano
	}

	logger := log.NewWithOptions(w, opts)
	if noColor {
		logger.SetColorProfile(termenv.Ascii)
	}
	return logger
}
