package log

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Formats accepted by NewHandler.
const (
	FormatPlain = "plain"
	FormatText  = "text"
	FormatJSON  = "json"
)

// HandlerOptions configures the log handler.
type HandlerOptions struct {
	Level     slog.Leveler
	Format    string // "plain", "text" or "json"
	Output    io.Writer
	AddSource bool
}

// NewHandler creates appropriate handler based on options.
func NewHandler(opts HandlerOptions) slog.Handler {
	if opts.Output == nil {
		opts.Output = os.Stderr // Always stderr, never stdout
	}

	handlerOpts := &slog.HandlerOptions{
		Level:       opts.Level,
		AddSource:   opts.AddSource,
		ReplaceAttr: replaceLevelNames,
	}

	switch opts.Format {
	case FormatJSON:
		return slog.NewJSONHandler(opts.Output, handlerOpts)
	case FormatText:
		return slog.NewTextHandler(opts.Output, handlerOpts)
	}
	return &plainHandler{mu: new(sync.Mutex), w: opts.Output, level: opts.Level}
}

// replaceLevelNames customizes level display (TRACE, etc.).
func replaceLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level, ok := a.Value.Any().(slog.Level)
		if ok {
			a.Value = slog.StringValue(LevelName(level))
		}
	}
	return a
}

// plainHandler writes one terminal-friendly line per record:
//
//	cmk: error: NoBuildDirectory: /proj: no Ninja build directory found
//	cmk: debug: build directory dir=/proj/build component=session
type plainHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string // group prefix for attribute keys
}

func (h *plainHandler) Enabled(_ context.Context, l slog.Level) bool {
	floor := slog.LevelInfo
	if h.level != nil {
		floor = h.level.Level()
	}
	return l >= floor
}

func (h *plainHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	buf.WriteString("cmk: ")
	buf.WriteString(strings.ToLower(LevelName(r.Level)))
	buf.WriteString(": ")
	buf.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&buf, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&buf, h.prefix, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *plainHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *plainHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func writeAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, g := range a.Value.Group() {
			writeAttr(buf, prefix+a.Key+".", g)
		}
		return
	}
	buf.WriteByte(' ')
	buf.WriteString(prefix + a.Key)
	buf.WriteByte('=')
	v := a.Value.String()
	if v == "" || strings.ContainsAny(v, " \t\n\"=") {
		v = strconv.Quote(v)
	}
	buf.WriteString(v)
}
