// Package log is cmk's diagnostic logger. Records always go to stderr (or
// the configured writer) so that stdout carries only the output of the
// commands cmk dispatches.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// Options configures the process logger.
type Options struct {
	// Verbosity is 0 (errors) through 4 (trace).
	Verbosity int
	// Format is FormatPlain, FormatText or FormatJSON. Empty means plain.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

var (
	current   atomic.Pointer[slog.Logger]
	level     = new(slog.LevelVar)
	verbosity atomic.Int32
)

func init() {
	Init(Options{Verbosity: VerbosityWarn})
}

// Init replaces the process logger and makes it the slog default.
func Init(opts Options) {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	SetVerbosity(opts.Verbosity)

	l := slog.New(NewHandler(HandlerOptions{
		Level:  level,
		Format: opts.Format,
		Output: opts.Output,
	}))
	current.Store(l)
	slog.SetDefault(l)
}

// SetVerbosity changes the level of the current logger in place.
func SetVerbosity(v int) {
	verbosity.Store(int32(v))
	level.Set(VerbosityToLevel(v))
}

// Verbosity returns the current verbosity.
func Verbosity() int {
	return int(verbosity.Load())
}

// Enabled reports whether records at v would be emitted.
func Enabled(v int) bool {
	return Verbosity() >= v
}

// Logger returns the process logger.
func Logger() *slog.Logger {
	return current.Load()
}

// Component returns the process logger tagged with component=name.
func Component(name string) *slog.Logger {
	return Logger().With("component", name)
}

// Error reports a failure. It is the one line a user sees when cmk exits
// with a resolution error.
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// Trace logs below debug, for argv and environment dumps.
func Trace(msg string, args ...any) {
	Logger().Log(context.Background(), LevelTrace, msg, args...)
}
