package logging

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	EnvLevel = "CDVIZ_COLLECTOR_LOG"
	EnvJSON  = "CDVIZ_COLLECTOR_LOG_JSON"
)

type Options struct {
	Level string
	JSON  bool
	Out   io.Writer
}

// New builds the process logger. It is created once in main and handed to
// every component that logs.
func New(opts Options) *slog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	cfg := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(out, cfg)
	} else {
		h = slog.NewTextHandler(out, cfg)
	}
	return slog.New(h)
}

func ParseLevel(s string) slog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "off":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// VerbosityLevel maps the count of -v flags: none logs errors only, -v adds
// warnings, -vv info and -vvv debug.
func VerbosityLevel(v int) string {
	switch {
	case v <= 0:
		return "error"
	case v == 1:
		return "warn"
	case v == 2:
		return "info"
	default:
		return "debug"
	}
}

// OptionsFromEnv lets CDVIZ_COLLECTOR_LOG and CDVIZ_COLLECTOR_LOG_JSON take
// precedence over the level picked on the command line.
func OptionsFromEnv(verbosity int) Options {
	opts := Options{Level: VerbosityLevel(verbosity)}
	if lvl := strings.TrimSpace(os.Getenv(EnvLevel)); lvl != "" {
		opts.Level = lvl
	}
	if b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(EnvJSON))); err == nil {
		opts.JSON = b
	}
	return opts
}
