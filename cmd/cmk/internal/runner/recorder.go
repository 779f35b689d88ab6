package runner

import (
	"context"
	"slices"
	"sync"
)

// Recorder is a Spawner that records commands instead of running them.
type Recorder struct {
	mu    sync.Mutex
	calls []Command

	// Handle, when set, decides the outcome of each command. A nil Handle
	// succeeds with exit code 0.
	Handle func(Command) (int, error)
}

// Spawn records c and returns the outcome chosen by Handle.
func (r *Recorder) Spawn(_ context.Context, c Command) (int, error) {
	r.mu.Lock()
	c.Argv = slices.Clone(c.Argv)
	c.Env = slices.Clone(c.Env)
	r.calls = append(r.calls, c)
	handle := r.Handle
	r.mu.Unlock()

	if handle == nil {
		return 0, nil
	}
	return handle(c)
}

// Calls returns the recorded commands in order.
func (r *Recorder) Calls() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Argvs returns the argv of every recorded command.
func (r *Recorder) Argvs() [][]string {
	calls := r.Calls()
	out := make([][]string, len(calls))
	for i, c := range calls {
		out[i] = c.Argv
	}
	return out
}
