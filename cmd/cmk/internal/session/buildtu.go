package session

import (
	"context"
	"path/filepath"
	"time"

	"github.com/albertocavalcante/cmk/cmd/cmk/internal/runner"
	"github.com/albertocavalcante/cmk/cmd/cmk/internal/watch"
	"github.com/albertocavalcante/cmk/pkg/cmkerr"
	"github.com/albertocavalcante/cmk/pkg/compiledb"
)

// BuildTUOptions configures BuildTU.
type BuildTUOptions struct {
	BuildDir string
	// Source is the translation unit. Empty prompts over all of them.
	Source   string
	Watch    bool
	Debounce time.Duration
}

// BuildTU compiles a single translation unit with the command recorded in
// the compilation database. It never invokes the build tool.
func (s *Session) BuildTU(ctx context.Context, opts BuildTUOptions) error {
	var accept func(string) bool
	if opts.Source != "" {
		accept = func(dir string) bool {
			idx, err := compiledb.Load(s.in.FS, dir)
			if err != nil {
				return false
			}
			_, candidates, err := idx.Lookup(opts.Source, s.Root, s.in.Cwd)
			return err == nil && candidates == nil
		}
	}
	dir, err := s.BuildDir(ctx, opts.BuildDir, accept)
	if err != nil {
		return err
	}
	resolved, err := s.Resolve(dir)
	if err != nil {
		return err
	}
	idx, err := compiledb.Load(s.in.FS, dir)
	if err != nil {
		return err
	}

	entry, err := s.lookupSource(ctx, idx, opts.Source)
	if err != nil {
		return err
	}

	env := s.Env(resolved.BuildEnv()).Slice()
	compile := func(ctx context.Context) error {
		if entry.Output != "" {
			if err := s.in.MkdirAll(filepath.Dir(entry.Output), 0o755); err != nil {
				return err
			}
		}
		return s.spawn(ctx, runner.Command{
			Argv:   entry.CompileOnly(),
			Env:    env,
			Dir:    entry.Directory,
			Stdin:  s.in.Stdin,
			Stdout: s.in.Stdout,
			Stderr: s.in.Stderr,
		})
	}

	if !opts.Watch {
		return compile(ctx)
	}

	w, err := watch.New(watch.Config{
		Source:   entry.File,
		Debounce: opts.Debounce,
		Compile:  compile,
		Logger:   watch.NewLogger(watch.LoggerConfig{Writer: s.in.Stderr}),
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	return w.Run(ctx)
}

// lookupSource finds the entry for arg, prompting when it is empty or
// matches several files.
func (s *Session) lookupSource(ctx context.Context, idx *compiledb.Index, arg string) (compiledb.Entry, error) {
	if arg == "" {
		sources := idx.Sources(s.Root)
		if len(sources) == 0 {
			return compiledb.Entry{}, cmkerr.New(cmkerr.SourceNotFound, idx.Path, "the compilation database lists no translation units")
		}
		choice, err := s.selector.Choose(ctx, sources, "")
		if err != nil {
			return compiledb.Entry{}, err
		}
		arg = choice
	}

	entry, candidates, err := idx.Lookup(arg, s.Root, s.in.Cwd)
	if err != nil {
		return compiledb.Entry{}, err
	}
	if candidates == nil {
		return entry, nil
	}
	choice, err := s.selector.Choose(ctx, candidates, arg)
	if err != nil {
		return compiledb.Entry{}, err
	}
	entry, _, err = idx.Lookup(choice, s.Root, s.Root)
	return entry, err
}
