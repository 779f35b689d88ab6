package watch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// Logger prints the progress of a watch session, as text or JSON lines.
type Logger struct {
	writer  io.Writer
	isTTY   bool
	noColor bool
	jsonOut bool

	statsMu sync.Mutex
	stats   Stats
}

// Stats counts the compiles of a watch session.
type Stats struct {
	Compiles  int
	Failures  int
	Skipped   int
	StartTime time.Time
}

// LoggerConfig configures the logger.
type LoggerConfig struct {
	Writer  io.Writer
	NoColor bool
	JSON    bool
}

// NewLogger creates a logger. A nil Writer means stderr.
func NewLogger(cfg LoggerConfig) *Logger {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}

	isTTY := false
	if f, ok := writer.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}

	return &Logger{
		writer:  writer,
		isTTY:   isTTY,
		noColor: cfg.NoColor,
		jsonOut: cfg.JSON,
		stats:   Stats{StartTime: time.Now()},
	}
}

// Ready reports that path is being watched.
func (l *Logger) Ready(path string) {
	if l.jsonOut {
		l.writeJSON(map[string]any{"event": "ready", "path": path})
		return
	}
	l.printf("cmk: watching %s (ctrl-c to stop)\n", path)
}

// Compiling reports the start of a compile.
func (l *Logger) Compiling(path string) {
	if l.jsonOut {
		l.writeJSON(map[string]any{"event": "compiling", "path": path, "time": now()})
		return
	}
	l.printf("[%s] compiling %s\n", l.timestamp(), path)
}

// Compiled reports a successful compile.
func (l *Logger) Compiled(path string, took time.Duration) {
	l.count(func(s *Stats) { s.Compiles++ })

	if l.jsonOut {
		l.writeJSON(map[string]any{"event": "compiled", "path": path, "duration": took.String(), "time": now()})
		return
	}
	l.printf("[%s] %s %s (%s)\n", l.timestamp(), l.colorize("✓", green), path, took.Round(time.Millisecond))
}

// Unchanged reports a save that did not change the file contents.
func (l *Logger) Unchanged(path string) {
	l.count(func(s *Stats) { s.Skipped++ })

	if l.jsonOut {
		l.writeJSON(map[string]any{"event": "unchanged", "path": path, "time": now()})
		return
	}
	l.printf("[%s] %s %s unchanged\n", l.timestamp(), l.colorize("=", yellow), path)
}

// Failed reports a failed compile.
func (l *Logger) Failed(path string, err error) {
	l.count(func(s *Stats) {
		s.Compiles++
		s.Failures++
	})

	if l.jsonOut {
		l.writeJSON(map[string]any{"event": "failed", "path": path, "error": err.Error(), "time": now()})
		return
	}
	l.printf("[%s] %s %s: %v\n", l.timestamp(), l.colorize("✗", red), path, err)
}

// Error reports a watcher error.
func (l *Logger) Error(err error) {
	if l.jsonOut {
		l.writeJSON(map[string]any{"event": "error", "error": err.Error(), "time": now()})
		return
	}
	l.printf("[%s] %s error: %v\n", l.timestamp(), l.colorize("✗", red), err)
}

// Shutdown prints the session statistics.
func (l *Logger) Shutdown() {
	stats := l.Stats()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":    "shutdown",
			"compiles": stats.Compiles,
			"failures": stats.Failures,
			"duration": time.Since(stats.StartTime).String(),
		})
		return
	}
	l.printf("cmk: stopped watching (%d compiles, %d failed)\n", stats.Compiles, stats.Failures)
}

// Stats returns the statistics so far.
func (l *Logger) Stats() Stats {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	return l.stats
}

func (l *Logger) count(f func(*Stats)) {
	l.statsMu.Lock()
	f(&l.stats)
	l.statsMu.Unlock()
}

func now() string {
	return time.Now().Format(time.RFC3339)
}

func (l *Logger) timestamp() string {
	return time.Now().Format("15:04:05")
}

const (
	green  = "\033[32m"
	yellow = "\033[33m"
	red    = "\033[31m"
)

func (l *Logger) colorize(s, color string) string {
	if l.noColor || !l.isTTY {
		return s
	}
	return color + s + "\033[0m"
}

func (l *Logger) writeJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		l.printf("{\"event\":\"internal_error\",\"error\":%q}\n", err.Error())
		return
	}
	l.printf("%s\n", data)
}

// printf ignores write errors; the output is informational.
func (l *Logger) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(l.writer, format, args...)
}
