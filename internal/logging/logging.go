// Package logging builds the structured logger shared by every component.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// New returns a JSON logger writing to stderr, stamped with time and caller,
// filtered to the given level ("debug", "info", "warn", "error").
func New(lvl string) log.Logger {
	return NewWithWriter(os.Stderr, lvl)
}

// NewWithWriter is New with an explicit sink.
func NewWithWriter(w io.Writer, lvl string) log.Logger {
	var logger log.Logger
	{
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
		logger = level.NewFilter(logger, levelOption(lvl))
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}
	return logger
}

// Component scopes a logger to a named component.
func Component(logger log.Logger, name string) log.Logger {
	return log.With(logger, "component", name)
}

func levelOption(lvl string) level.Option {
	switch strings.ToLower(lvl) {
	case "debug":
		return level.AllowDebug()
	case "warn", "warning":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}
