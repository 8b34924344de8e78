package utils

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggerOptions configures NewLoggerWithOptions.
type LoggerOptions struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string
	// Format is console or json. Default: console.
	Format string
	// Output defaults to os.Stdout.
	Output io.Writer
}

// Logger provides leveled logging throughout the application.
type Logger struct {
	zl zerolog.Logger
}

// NewLogger creates a Logger writing human-readable lines to stdout.
func NewLogger() *Logger {
	return NewLoggerWithOptions(LoggerOptions{})
}

// NewLoggerWithOptions creates a Logger with the given level, format and output.
func NewLoggerWithOptions(opts LoggerOptions) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if !strings.EqualFold(opts.Format, "json") {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "2006-01-02 15:04:05",
			NoColor:    out != os.Stdout && out != os.Stderr,
		}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// SetVerbose lowers the level to debug so per-record decisions are shown.
func (l *Logger) SetVerbose(verbose bool) {
	if verbose && l.zl.GetLevel() > zerolog.DebugLevel {
		l.zl = l.zl.Level(zerolog.DebugLevel)
	}
}

// Verbose reports whether debug lines are emitted.
func (l *Logger) Verbose() bool {
	return l.zl.GetLevel() <= zerolog.DebugLevel
}

// With returns a child logger carrying an extra field on every line.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

func (l *Logger) Info(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	if !l.Verbose() {
		return
	}
	l.zl.Debug().Msgf(format, args...)
}

// Elapsed formats a duration the way the run report prints it.
func Elapsed(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
