package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Format selects the zerolog output encoding.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// ZerologOptions configures NewZerologLogger.
type ZerologOptions struct {
	// Level is one of trace, debug, info, warn, error. Defaults to info.
	Level string
	// Format is console (human readable) or json. Defaults to console.
	Format Format
	// Component, when set, is attached to every event as "component".
	Component string
}

// ZerologLogger is a Logger backed by zerolog.
type ZerologLogger struct {
	zl     zerolog.Logger
	closer io.Closer
}

// NewZerologLogger creates a zerolog-backed Logger writing to w. If w also
// implements io.Closer (other than stdout/stderr) it is closed by Close.
func NewZerologLogger(w io.Writer, opts ZerologOptions) *ZerologLogger {
	out := w
	if opts.Format != FormatJSON {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat}
	}
	ctx := zerolog.New(out).Level(ParseLevel(opts.Level)).With().Timestamp()
	if opts.Component != "" {
		ctx = ctx.Str("component", opts.Component)
	}

	zl := &ZerologLogger{zl: ctx.Logger()}
	if c, ok := w.(io.Closer); ok && w != os.Stdout && w != os.Stderr {
		zl.closer = c
	}
	return zl
}

// ParseLevel maps a config level string to a zerolog level, defaulting to
// info for empty or unknown values.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (z *ZerologLogger) Debug(format string, args ...interface{}) {
	z.zl.Debug().Msgf(format, args...)
}

func (z *ZerologLogger) Info(format string, args ...interface{}) {
	z.zl.Info().Msgf(format, args...)
}

func (z *ZerologLogger) Warning(format string, args ...interface{}) {
	z.zl.Warn().Msgf(format, args...)
}

func (z *ZerologLogger) Error(format string, args ...interface{}) {
	z.zl.Error().Msgf(format, args...)
}

// Close closes the underlying writer when it owns one.
func (z *ZerologLogger) Close() error {
	if z.closer == nil {
		return nil
	}
	c := z.closer
	z.closer = nil
	return c.Close()
}

var _ Logger = (*ZerologLogger)(nil)
