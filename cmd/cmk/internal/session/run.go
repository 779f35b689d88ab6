package session

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/albertocavalcante/cmk/cmd/cmk/internal/runner"
	"github.com/albertocavalcante/cmk/cmd/cmk/internal/selector"
	"github.com/albertocavalcante/cmk/pkg/cmake"
	"github.com/albertocavalcante/cmk/pkg/cmkerr"
)

// targetSep joins a build directory and a target in a qualified candidate.
const targetSep = ": "

// RunOptions configures Run.
type RunOptions struct {
	BuildDir string
	Target   string
	Args     []string
}

// Run builds an executable target and runs it with the run environment.
// The program's exit code is returned through a *runner.ExitError.
func (s *Session) Run(ctx context.Context, opts RunOptions) error {
	jobs, err := s.Jobs(0)
	if err != nil {
		return err
	}

	var accept func(string) bool
	if opts.Target != "" {
		accept = func(dir string) bool {
			targets, err := cmake.ReadTargets(s.in.FS, dir)
			if err != nil {
				return false
			}
			t, ok := cmake.Find(targets, opts.Target)
			return ok && t.IsExecutable()
		}
	}
	var picked string
	dir, err := s.buildDir(opts.BuildDir, accept, s.chooseRunTarget(ctx, opts.Target, &picked))
	if err != nil {
		return err
	}
	resolved, err := s.Resolve(dir)
	if err != nil {
		return err
	}

	targets, err := s.api(resolved).Targets(ctx, dir)
	if err != nil {
		return err
	}
	executables := cmake.Executables(targets)
	if len(executables) == 0 {
		return cmkerr.New(cmkerr.TargetNotFound, opts.Target, "the build directory has no executable targets")
	}
	name := picked
	if name == "" {
		if name, err = s.chooseTarget(ctx, cmake.Names(executables), opts.Target); err != nil {
			return err
		}
	}
	target, ok := cmake.Find(executables, name)
	if !ok {
		return cmkerr.New(cmkerr.TargetNotFound, name, "not an executable target of "+dir)
	}

	if err := s.buildQuietly(ctx, dir, resolved, target.Name, jobs); err != nil {
		return err
	}

	argv := append([]string{target.Artifacts[0]}, opts.Args...)
	return s.spawn(ctx, runner.Command{
		Argv:   argv,
		Env:    s.Env(resolved.RunEnv(target.Name)).Slice(),
		Dir:    s.in.Cwd,
		Stdin:  s.in.Stdin,
		Stdout: s.in.Stdout,
		Stderr: s.in.Stderr,
	})
}

// chooseRunTarget picks among several build directories by the executables
// they offer. One prompt lists "<dir>: <target>" for every match of query;
// the target part is stored in picked. When the matches all come from one
// directory it is returned without prompting and the target is chosen later.
// Directories without a file API reply are skipped; if none has one, the
// directories themselves are offered.
func (s *Session) chooseRunTarget(ctx context.Context, query string, picked *string) func(rels []string) (string, error) {
	return func(rels []string) (string, error) {
		var (
			entries []string
			matched []string
			read    int
		)
		for _, rel := range rels {
			targets, err := cmake.ReadTargets(s.in.FS, filepath.Join(s.Root, rel))
			if err != nil {
				s.logger.Debug("skipping build directory without targets", "dir", rel, "err", err)
				continue
			}
			read++
			names := cmake.Names(cmake.Executables(targets))
			if query != "" {
				names = selector.Narrow(names, query)
			}
			if len(names) > 0 {
				matched = append(matched, rel)
			}
			for _, name := range names {
				entries = append(entries, rel+targetSep+name)
			}
		}

		switch {
		case read == 0:
			return s.selector.Choose(ctx, rels, "")
		case len(matched) == 0 && query == "":
			return "", cmkerr.New(cmkerr.TargetNotFound, "", "no build directory has executable targets")
		case len(matched) == 0:
			return "", cmkerr.Newf(cmkerr.TargetNotFound, query, "no executable target matches in %s", strings.Join(rels, ", "))
		case len(matched) == 1:
			return matched[0], nil
		}

		choice, err := s.selector.Choose(ctx, entries, query)
		if err != nil {
			return "", err
		}
		rel, name, ok := strings.Cut(choice, targetSep)
		if !ok {
			return "", cmkerr.New(cmkerr.TargetNotFound, choice, "selection is not a run target")
		}
		*picked = name
		return rel, nil
	}
}
