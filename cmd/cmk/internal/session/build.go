package session

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/albertocavalcante/cmk/cmd/cmk/internal/runner"
	"github.com/albertocavalcante/cmk/cmd/cmk/internal/selector"
	"github.com/albertocavalcante/cmk/internal/log"
	"github.com/albertocavalcante/cmk/pkg/cmake"
	"github.com/albertocavalcante/cmk/pkg/cmkerr"
	"github.com/albertocavalcante/cmk/pkg/config"
)

// DefaultTarget is built when no target is named.
const DefaultTarget = "all"

// BuildOptions configures Build.
type BuildOptions struct {
	BuildDir    string
	Target      string
	Jobs        int
	Interactive bool
}

// Build runs cmake --build for a target of the chosen build directory.
func (s *Session) Build(ctx context.Context, opts BuildOptions) error {
	jobs, err := s.Jobs(opts.Jobs)
	if err != nil {
		return err
	}
	dir, err := s.BuildDir(ctx, opts.BuildDir, nil)
	if err != nil {
		return err
	}
	resolved, err := s.Resolve(dir)
	if err != nil {
		return err
	}

	target := opts.Target
	if opts.Interactive {
		targets, err := s.api(resolved).Targets(ctx, dir)
		if err != nil {
			return err
		}
		names := append([]string{DefaultTarget}, cmake.Names(targets)...)
		if target, err = s.chooseTarget(ctx, names, target); err != nil {
			return err
		}
	}
	if target == "" {
		target = DefaultTarget
	}

	return s.build(ctx, dir, resolved, target, jobs, s.in.Stdout, s.in.Stderr)
}

func (s *Session) build(ctx context.Context, dir string, resolved *config.Resolved, target string, jobs int, stdout, stderr io.Writer) error {
	return s.spawn(ctx, runner.Command{
		Argv:   cmake.BuildArgs(dir, target, jobs),
		Env:    s.Env(resolved.BuildEnv()).Slice(),
		Dir:    s.Root,
		Stdin:  s.in.Stdin,
		Stdout: stdout,
		Stderr: stderr,
	})
}

// buildQuietly builds target, showing its output only when it fails or
// at verbosity 2 and above.
func (s *Session) buildQuietly(ctx context.Context, dir string, resolved *config.Resolved, target string, jobs int) error {
	if log.Enabled(log.VerbosityInfo) {
		return s.build(ctx, dir, resolved, target, jobs, s.in.Stderr, s.in.Stderr)
	}
	var out bytes.Buffer
	err := s.build(ctx, dir, resolved, target, jobs, &out, &out)
	if err != nil {
		_, _ = s.in.Stderr.Write(out.Bytes())
	}
	return err
}

// chooseTarget resolves a possibly partial target name.
func (s *Session) chooseTarget(ctx context.Context, names []string, query string) (string, error) {
	if len(names) == 0 {
		return "", cmkerr.New(cmkerr.TargetNotFound, query, "the build directory has no matching targets")
	}
	if query != "" && len(selector.Narrow(names, query)) == 0 {
		return "", cmkerr.Newf(cmkerr.TargetNotFound, query, "known targets: %s", joinLimited(names, 8))
	}
	return s.selector.Choose(ctx, names, query)
}

// Refresh re-runs cmake for the build directory, registering the file API
// query so that targets can be listed afterwards.
func (s *Session) Refresh(ctx context.Context, buildDir string) error {
	dir, err := s.BuildDir(ctx, buildDir, nil)
	if err != nil {
		return err
	}
	resolved, err := s.Resolve(dir)
	if err != nil {
		return err
	}
	if s.in.RegisterQuery != nil {
		if err := s.in.RegisterQuery(dir); err != nil {
			return err
		}
	}
	return s.spawn(ctx, runner.Command{
		Argv:   cmake.ConfigureArgs(s.Root, dir),
		Env:    s.Env(resolved.BuildEnv()).Slice(),
		Dir:    s.Root,
		Stdin:  s.in.Stdin,
		Stdout: s.in.Stdout,
		Stderr: s.in.Stderr,
	})
}

// joinLimited joins at most n names, noting how many were left out.
func joinLimited(names []string, n int) string {
	if len(names) <= n {
		return strings.Join(names, ", ")
	}
	return strings.Join(names[:n], ", ") + ", ..."
}
