package watch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatcher_RecompilesOnChange(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "main.cc")
	if err := os.WriteFile(source, []byte("int main() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var compiles atomic.Int32
	logger := NewLogger(LoggerConfig{Writer: &bytes.Buffer{}})
	w, err := New(Config{
		Source:   source,
		Debounce: 20 * time.Millisecond,
		Compile: func(context.Context) error {
			compiles.Add(1)
			return nil
		},
		Logger: logger,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitFor(t, "initial compile", func() bool { return compiles.Load() == 1 })

	if err := os.WriteFile(source, []byte("int main() { return 1; }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "recompile", func() bool { return compiles.Load() == 2 })

	if err := os.WriteFile(source, []byte("int main() { return 1; }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "unchanged save", func() bool { return logger.Stats().Skipped >= 1 })
	if got := compiles.Load(); got != 2 {
		t.Errorf("identical contents recompiled: %d compiles", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "other.cc"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if got := compiles.Load(); got != 2 {
		t.Errorf("a sibling file triggered a compile: %d compiles", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestWatcher_FailedCompileRetries(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "main.cc")
	if err := os.WriteFile(source, []byte("broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	calls := 0
	w, err := New(Config{
		Source: source,
		Compile: func(context.Context) error {
			calls++
			return errors.New("compile failed")
		},
		Logger: NewLogger(LoggerConfig{Writer: &bytes.Buffer{}}),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	w.compile(source, true)
	w.compile(source, false)
	if calls != 2 {
		t.Errorf("a failed compile should not be skipped as unchanged, got %d calls", calls)
	}
}

func TestWatcher_HandleEventFilters(t *testing.T) {
	w, err := New(Config{
		Source:   "/proj/src/main.cc",
		Debounce: time.Hour,
		Compile:  func(context.Context) error { return nil },
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	w.handleEvent(fsnotify.Event{Name: "/proj/src/other.cc", Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: "/proj/src/main.cc", Op: fsnotify.Chmod})
	w.handleEvent(fsnotify.Event{Name: "/proj/src/main.cc", Op: fsnotify.Remove})
	if n := w.debouncer.PendingCount(); n != 0 {
		t.Errorf("expected no pending change, got %d", n)
	}

	w.handleEvent(fsnotify.Event{Name: "/proj/src/main.cc", Op: fsnotify.Write})
	if n := w.debouncer.PendingCount(); n != 1 {
		t.Errorf("expected the write to be pending, got %d", n)
	}
}

func TestNew_RequiresCompile(t *testing.T) {
	if _, err := New(Config{Source: "/x.cc"}); err == nil {
		t.Error("New() without Compile should fail")
	}
}

func TestIsWatchLimitError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"no space left on device", errors.New("no space left on device"), true},
		{"too many open files", errors.New("too many open files"), true},
		{"regular error", os.ErrPermission, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isWatchLimitError(tt.err); got != tt.expected {
				t.Errorf("isWatchLimitError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.cc")
	b := filepath.Join(dir, "b.cc")
	if err := os.WriteFile(a, []byte("same"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("same"), 0o644); err != nil {
		t.Fatal(err)
	}

	ha, err := HashFile(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, _ := HashFile(b)
	if ha != hb {
		t.Error("identical contents should hash equal")
	}
	if _, err := HashFile(filepath.Join(dir, "missing.cc")); err == nil {
		t.Error("HashFile() of a missing file should fail")
	}
}
