// Package watch recompiles a translation unit whenever it is saved.
package watch

import (
	"slices"
	"sync"
	"time"
)

// MaxPending is the number of distinct paths that forces an immediate
// flush instead of waiting for the window to expire.
const MaxPending = 256

// Debouncer coalesces bursts of change events for the same files. Editors
// commonly write, rename and chmod a file in quick succession on save.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	window  time.Duration
	onFlush func(paths []string)
	stopped bool
}

// NewDebouncer creates a debouncer that calls onFlush with the sorted set
// of changed paths once window has passed without a new event.
func NewDebouncer(window time.Duration, onFlush func(paths []string)) *Debouncer {
	return &Debouncer{
		pending: make(map[string]struct{}),
		window:  window,
		onFlush: onFlush,
	}
}

// Add records a change to path and restarts the window.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.pending[path] = struct{}{}

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if len(d.pending) >= MaxPending {
		paths := d.takeLocked()
		d.mu.Unlock()
		d.deliver(paths)
		return
	}
	// A timer that already fired finds nothing pending and returns.
	d.timer = time.AfterFunc(d.window, d.FlushNow)
	d.mu.Unlock()
}

// FlushNow delivers pending paths without waiting for the window.
func (d *Debouncer) FlushNow() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.stopped {
		d.mu.Unlock()
		return
	}
	paths := d.takeLocked()
	d.mu.Unlock()
	d.deliver(paths)
}

// Stop flushes pending paths and ignores any later Add.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	paths := d.takeLocked()
	d.mu.Unlock()
	d.deliver(paths)
}

// PendingCount returns the number of paths waiting to be flushed.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// takeLocked empties the pending set. Caller must hold d.mu.
func (d *Debouncer) takeLocked() []string {
	if len(d.pending) == 0 {
		return nil
	}
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]struct{})
	slices.Sort(paths)
	return paths
}

// deliver calls onFlush outside the lock so the handler may call Add.
func (d *Debouncer) deliver(paths []string) {
	if len(paths) > 0 && d.onFlush != nil {
		d.onFlush(paths)
	}
}
