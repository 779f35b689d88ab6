// Package session resolves everything an invocation needs (project root,
// configuration, build directory, environment) and dispatches the build
// tool, the compiler or the program being run.
package session

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/albertocavalcante/cmk/cmd/cmk/internal/runner"
	"github.com/albertocavalcante/cmk/cmd/cmk/internal/selector"
	"github.com/albertocavalcante/cmk/internal/log"
	"github.com/albertocavalcante/cmk/pkg/cmake"
	"github.com/albertocavalcante/cmk/pkg/config"
	"github.com/albertocavalcante/cmk/pkg/environ"
	"github.com/albertocavalcante/cmk/pkg/project"
	"github.com/albertocavalcante/cmk/pkg/vfs"
)

// Inputs is the ambient state of one invocation.
type Inputs struct {
	Cwd      string
	Environ  environ.Environment
	Platform string
	NumCPU   int

	// GlobalConfig is the user config file. Empty skips it.
	GlobalConfig string

	FS      vfs.FS
	Spawner runner.Spawner
	// LookPath locates the selector program.
	LookPath func(file string) (string, error)
	// MkdirAll creates output directories for build-tu.
	MkdirAll func(path string, perm os.FileMode) error
	// RegisterQuery writes the CMake file API query for a build directory.
	RegisterQuery func(buildDir string) error

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// TermRows is the terminal height used to size the selector.
	TermRows int
}

// Host returns the Inputs of the running process.
func Host() (Inputs, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Inputs{}, err
	}
	env := environ.Current()
	return Inputs{
		Cwd:           cwd,
		Environ:       env,
		Platform:      config.HostPlatform(),
		NumCPU:        runtime.NumCPU(),
		GlobalConfig:  config.GlobalConfigPath(),
		FS:            vfs.OS(),
		Spawner:       runner.New(),
		LookPath:      func(file string) (string, error) { return runner.LookPath(file, env.Slice()) },
		MkdirAll:      os.MkdirAll,
		RegisterQuery: cmake.EnsureQuery,
		Stdin:         os.Stdin,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		TermRows:      selector.TerminalRows(os.Stderr),
	}, nil
}

// Session holds what has been resolved for an invocation.
type Session struct {
	in     Inputs
	Root   string
	Config *config.Document

	selector *selector.Selector
	logger   *slog.Logger
}

// New locates the project root and loads its configuration.
func New(in Inputs) (*Session, error) {
	if in.Stdout == nil {
		in.Stdout = io.Discard
	}
	if in.Stderr == nil {
		in.Stderr = io.Discard
	}
	if in.MkdirAll == nil {
		in.MkdirAll = os.MkdirAll
	}
	cwd, err := filepath.Abs(in.Cwd)
	if err != nil {
		return nil, err
	}
	in.Cwd = cwd

	root, err := project.FindRoot(in.FS, in.Cwd)
	if err != nil {
		return nil, err
	}
	doc, err := config.LoadWith(in.FS, root, config.LoadOptions{GlobalPath: in.GlobalConfig, Environ: in.Environ})
	if err != nil {
		return nil, err
	}

	s := &Session{
		in:     in,
		Root:   root,
		Config: doc,
		logger: log.Component("session"),
	}
	s.selector = &selector.Selector{
		Program:  doc.Selector.Program,
		Args:     doc.Selector.Args,
		Spawner:  in.Spawner,
		LookPath: in.LookPath,
		Env:      in.Environ.Slice(),
		Stderr:   in.Stderr,
		Rows:     in.TermRows,
	}
	s.logger.Debug("project", "root", root, "config", doc.Path)
	return s, nil
}

// BuildDir picks the build directory. accept, when set, narrows several
// candidates to those it reports true for.
func (s *Session) BuildDir(ctx context.Context, flag string, accept func(dir string) bool) (string, error) {
	return s.buildDir(flag, accept, func(rels []string) (string, error) {
		return s.selector.Choose(ctx, rels, "")
	})
}

// buildDir is BuildDir with the interactive fallback supplied by the caller.
func (s *Session) buildDir(flag string, accept func(dir string) bool, choose func(rels []string) (string, error)) (string, error) {
	var candidates []string
	if flag == "" {
		var err error
		candidates, err = project.FindBuildDirs(s.in.FS, s.Root, project.SearchOptions{
			MaxDepth: s.Config.Search.MaxDepth,
			Exclude:  s.Config.Search.Exclude,
		})
		if err != nil {
			return "", err
		}
	}

	dir, err := project.ChooseBuildDir(s.in.FS, s.Root, candidates, project.Choice{
		Flag:   flag,
		Cwd:    s.in.Cwd,
		Accept: accept,
		Select: choose,
	})
	if err != nil {
		return "", err
	}
	s.logger.Debug("build directory", "dir", dir)
	return dir, nil
}

// Resolve expands the configuration for buildDir.
func (s *Session) Resolve(buildDir string) (*config.Resolved, error) {
	return config.Resolve(s.Config, config.Inputs{
		Root:     s.Root,
		BuildDir: buildDir,
		Environ:  s.in.Environ,
		Platform: s.in.Platform,
	})
}

// Env applies directives to the inherited environment.
func (s *Session) Env(directives config.Layer) environ.Environment {
	return environ.Build(directives, s.in.Environ, environ.Separator)
}

// Jobs returns flag when positive, otherwise the default job count.
func (s *Session) Jobs(flag int) (int, error) {
	if flag > 0 {
		return flag, nil
	}
	return config.DefaultJobs(s.in.Environ, s.in.NumCPU)
}

// spawn runs argv with env and reports a failure as an error.
func (s *Session) spawn(ctx context.Context, c runner.Command) error {
	s.logger.Info("running", "cmd", c.String())
	log.Trace("environment", "program", c.Argv[0], "env", c.Env)
	return runner.Check(s.in.Spawner.Spawn(ctx, c))
}

// api returns the target reader for resolved settings.
func (s *Session) api(resolved *config.Resolved) *cmake.API {
	return &cmake.API{
		FS:       s.in.FS,
		Register: s.in.RegisterQuery,
		Configure: func(ctx context.Context, buildDir string) error {
			return s.spawn(ctx, runner.Command{
				Argv:   cmake.ConfigureArgs(s.Root, buildDir),
				Env:    s.Env(resolved.BuildEnv()).Slice(),
				Dir:    s.Root,
				Stdout: s.in.Stderr,
				Stderr: s.in.Stderr,
			})
		},
	}
}
