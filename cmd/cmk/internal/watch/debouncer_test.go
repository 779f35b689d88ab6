package watch

import (
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"
)

// collector records the batches delivered by a debouncer.
type collector struct {
	mu      sync.Mutex
	batches [][]string
}

func (c *collector) flush(paths []string) {
	c.mu.Lock()
	c.batches = append(c.batches, paths)
	c.mu.Unlock()
}

func (c *collector) get() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.batches)
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	var c collector
	d := NewDebouncer(50*time.Millisecond, c.flush)
	defer d.Stop()

	d.Add("/proj/src/main.cc")
	time.Sleep(10 * time.Millisecond)
	d.Add("/proj/src/main.cc")
	time.Sleep(10 * time.Millisecond)
	d.Add("/proj/src/util.cc")

	time.Sleep(150 * time.Millisecond)

	got := c.get()
	if len(got) != 1 {
		t.Fatalf("expected 1 flush, got %d: %v", len(got), got)
	}
	want := []string{"/proj/src/main.cc", "/proj/src/util.cc"}
	if !slices.Equal(got[0], want) {
		t.Errorf("expected %v, got %v", want, got[0])
	}
}

func TestDebouncer_SeparateWindows(t *testing.T) {
	var c collector
	d := NewDebouncer(30*time.Millisecond, c.flush)
	defer d.Stop()

	d.Add("a.cc")
	time.Sleep(100 * time.Millisecond)
	d.Add("a.cc")
	time.Sleep(100 * time.Millisecond)

	if got := c.get(); len(got) != 2 {
		t.Errorf("expected 2 flushes, got %v", got)
	}
}

func TestDebouncer_FlushNow(t *testing.T) {
	var c collector
	d := NewDebouncer(time.Second, c.flush)
	defer d.Stop()

	d.Add("a.cc")
	d.FlushNow()

	if got := c.get(); len(got) != 1 || got[0][0] != "a.cc" {
		t.Errorf("expected [[a.cc]], got %v", got)
	}
	if d.PendingCount() != 0 {
		t.Errorf("expected nothing pending after FlushNow, got %d", d.PendingCount())
	}
}

func TestDebouncer_StopFlushesAndIgnoresLaterEvents(t *testing.T) {
	var c collector
	d := NewDebouncer(20*time.Millisecond, c.flush)

	d.Add("a.cc")
	d.Stop()
	d.Add("b.cc")
	time.Sleep(60 * time.Millisecond)

	got := c.get()
	if len(got) != 1 || !slices.Equal(got[0], []string{"a.cc"}) {
		t.Errorf("expected [[a.cc]], got %v", got)
	}
}

func TestDebouncer_PendingCount(t *testing.T) {
	d := NewDebouncer(time.Second, func([]string) {})
	defer d.Stop()

	d.Add("a.cc")
	d.Add("b.cc")
	d.Add("a.cc")

	if count := d.PendingCount(); count != 2 {
		t.Errorf("expected 2 pending, got %d", count)
	}
}

func TestDebouncer_MaxPending(t *testing.T) {
	var c collector
	d := NewDebouncer(time.Hour, c.flush)
	defer d.Stop()

	for i := range MaxPending {
		d.Add(fmt.Sprintf("file%d.cc", i))
	}

	got := c.get()
	if len(got) != 1 || len(got[0]) != MaxPending {
		t.Errorf("expected one flush of %d paths when the limit is hit, got %d flushes", MaxPending, len(got))
	}
}
