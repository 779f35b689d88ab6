// Package runner starts the subprocesses cmk dispatches to.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/albertocavalcante/cmk/internal/log"
	"github.com/albertocavalcante/cmk/pkg/cmkerr"
)

// DefaultWaitDelay is how long a cancelled child may take to exit after
// SIGTERM before it is killed.
const DefaultWaitDelay = 5 * time.Second

// Command describes one subprocess.
type Command struct {
	// Argv is the program followed by its arguments.
	Argv []string
	// Env is the complete environment as KEY=VALUE pairs.
	Env []string
	// Dir is the working directory. Empty means the current one.
	Dir string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (c Command) String() string {
	return strings.Join(c.Argv, " ")
}

// Spawner runs a command to completion and reports its exit code.
// A non-nil error means the command could not be run at all.
type Spawner interface {
	Spawn(ctx context.Context, cmd Command) (int, error)
}

// ExitError is a subprocess that exited unsuccessfully.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("subprocess exited with status %d", e.Code)
}

// Check converts a non-zero exit code into an *ExitError.
func Check(code int, err error) error {
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// ExitCode returns the code carried by an *ExitError in err's chain.
func ExitCode(err error) (int, bool) {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code, true
	}
	return 0, false
}

// Exec runs commands with os/exec.
type Exec struct {
	lookPath  func(file string, env []string) (string, error)
	waitDelay time.Duration
}

// Option configures an Exec.
type Option func(*Exec)

// WithLookPath replaces the program lookup.
// Used primarily for testing.
func WithLookPath(f func(file string, env []string) (string, error)) Option {
	return func(r *Exec) {
		r.lookPath = f
	}
}

// WithWaitDelay sets the grace period between SIGTERM and SIGKILL.
func WithWaitDelay(d time.Duration) Option {
	return func(r *Exec) {
		r.waitDelay = d
	}
}

// New creates an Exec with the given options.
func New(opts ...Option) *Exec {
	r := &Exec{lookPath: LookPath, waitDelay: DefaultWaitDelay}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Spawn runs c with its streams attached and waits for it. Cancelling ctx
// sends SIGTERM to the child. Death by signal is reported as 128+signal.
func (r *Exec) Spawn(ctx context.Context, c Command) (int, error) {
	if len(c.Argv) == 0 {
		return 0, cmkerr.New(cmkerr.SubprocessLaunchFailed, "", "empty command")
	}

	path, err := r.lookPath(c.Argv[0], c.Env)
	if err != nil {
		return 0, cmkerr.Wrap(cmkerr.SubprocessLaunchFailed, c.Argv[0], err)
	}

	cmd := exec.CommandContext(ctx, path, c.Argv[1:]...)
	cmd.Env = c.Env
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	cmd.Cancel = func() error { return terminate(cmd.Process) }
	cmd.WaitDelay = r.waitDelay

	log.Component("runner").Debug("spawning", "cmd", c.String(), "dir", c.Dir)
	if err := cmd.Start(); err != nil {
		return 0, cmkerr.Wrap(cmkerr.SubprocessLaunchFailed, c.Argv[0], err)
	}

	err = cmd.Wait()
	var ee *exec.ExitError
	if err != nil && !errors.As(err, &ee) && !errors.Is(err, exec.ErrWaitDelay) {
		return 0, fmt.Errorf("waiting for %s: %w", c.Argv[0], err)
	}
	code := exitStatus(cmd.ProcessState)
	log.Component("runner").Debug("subprocess finished", "cmd", c.Argv[0], "code", code)
	return code, nil
}

// LookPath finds file on the PATH of env, falling back to the PATH of this
// process when env does not set one.
func LookPath(file string, env []string) (string, error) {
	if strings.ContainsAny(file, `/\`) {
		return exec.LookPath(file)
	}
	path, ok := lookupEnv(env, "PATH")
	if !ok {
		return exec.LookPath(file)
	}
	for _, dir := range filepath.SplitList(path) {
		if dir == "" || !filepath.IsAbs(dir) {
			continue
		}
		if p, err := exec.LookPath(filepath.Join(dir, file)); err == nil {
			return p, nil
		}
	}
	return "", &exec.Error{Name: file, Err: exec.ErrNotFound}
}

func lookupEnv(env []string, key string) (string, bool) {
	for i := len(env) - 1; i >= 0; i-- {
		if k, v, ok := strings.Cut(env[i], "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}

// exitStatus returns the exit code of a finished process.
func exitStatus(state *os.ProcessState) int {
	if state == nil {
		return 1
	}
	if sig, ok := signaled(state); ok {
		return 128 + sig
	}
	return state.ExitCode()
}
