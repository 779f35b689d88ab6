// Package compiledb indexes the compile_commands.json written by CMake
// into a build directory.
package compiledb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/albertocavalcante/cmk/internal/langs"
	"github.com/albertocavalcante/cmk/internal/log"
	"github.com/albertocavalcante/cmk/pkg/cmkerr"
	"github.com/albertocavalcante/cmk/pkg/vfs"
)

// FileName is the compilation database inside a build directory.
const FileName = "compile_commands.json"

// Entry is the compile command of one translation unit. Paths are absolute.
type Entry struct {
	File      string
	Directory string
	Argv      []string
	Output    string
}

// rawEntry is one element of compile_commands.json.
type rawEntry struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Arguments []string `json:"arguments"`
	Command   string   `json:"command"`
	Output    string   `json:"output"`
}

// Index maps absolute source paths to their compile entry.
type Index struct {
	Path    string
	entries map[string]Entry
	files   []string
}

// Load reads buildDir/compile_commands.json.
func Load(fsys vfs.FS, buildDir string) (*Index, error) {
	path := filepath.Join(buildDir, FileName)
	data, err := fsys.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, cmkerr.New(cmkerr.CompileDBMissing, path, "configure with -DCMAKE_EXPORT_COMPILE_COMMANDS=ON")
	}
	if err != nil {
		return nil, cmkerr.Wrap(cmkerr.CompileDBMissing, path, err)
	}

	idx, err := Parse(data)
	if err != nil {
		var ce *cmkerr.Error
		if errors.As(err, &ce) {
			ce.Subject = path
		}
		return nil, err
	}
	idx.Path = path
	return idx, nil
}

// Parse decodes a compilation database. The last entry for a file wins.
func Parse(data []byte) (*Index, error) {
	var raw []rawEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, cmkerr.Wrap(cmkerr.CompileDBMalformed, "", err)
	}

	logger := log.Component("compiledb")
	idx := &Index{entries: make(map[string]Entry, len(raw))}
	for i, r := range raw {
		e, err := r.entry()
		if err != nil {
			return nil, cmkerr.Newf(cmkerr.CompileDBMalformed, "", "entry %d: %v", i, err)
		}
		if _, dup := idx.entries[e.File]; dup {
			logger.Warn("duplicate compile command, using the last one", "file", e.File)
		} else {
			idx.files = append(idx.files, e.File)
		}
		idx.entries[e.File] = e
	}
	slices.Sort(idx.files)
	logger.Debug("loaded compilation database", "entries", len(idx.files))
	return idx, nil
}

func (r rawEntry) entry() (Entry, error) {
	if r.Directory == "" {
		return Entry{}, errors.New("missing directory")
	}
	if r.File == "" {
		return Entry{}, errors.New("missing file")
	}

	argv := r.Arguments
	if len(argv) == 0 {
		if r.Command == "" {
			return Entry{}, errors.New("neither arguments nor command")
		}
		var err error
		if argv, err = shellquote.Split(r.Command); err != nil {
			return Entry{}, fmt.Errorf("command: %w", err)
		}
		if len(argv) == 0 {
			return Entry{}, errors.New("empty command")
		}
	}

	dir := filepath.Clean(r.Directory)
	e := Entry{
		File:      absIn(dir, r.File),
		Directory: dir,
		Argv:      argv,
	}
	if r.Output != "" {
		e.Output = absIn(dir, r.Output)
	} else if out := outputFlag(argv); out != "" {
		e.Output = absIn(dir, out)
	}
	return e, nil
}

func absIn(dir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(dir, path)
}

// outputFlag returns the argument of -o or /Fo, if any.
func outputFlag(argv []string) string {
	for i, arg := range argv {
		switch {
		case arg == "-o" && i+1 < len(argv):
			return argv[i+1]
		case strings.HasPrefix(arg, "/Fo") && len(arg) > 3:
			return arg[3:]
		}
	}
	return ""
}

// Len returns the number of distinct files.
func (idx *Index) Len() int { return len(idx.files) }

// Entry returns the entry of an absolute source path.
func (idx *Index) Entry(file string) (Entry, bool) {
	e, ok := idx.entries[filepath.Clean(file)]
	return e, ok
}

// Lookup resolves a user supplied source path. It tries arg as an absolute
// path, relative to cwd, and relative to root, then as a path suffix of
// the indexed files. Several suffix matches are returned as root-relative
// candidates with a zero Entry.
func (idx *Index) Lookup(arg, root, cwd string) (Entry, []string, error) {
	if filepath.IsAbs(arg) {
		if e, ok := idx.Entry(arg); ok {
			return e, nil, nil
		}
		return Entry{}, nil, idx.notFound(arg, root)
	}
	for _, base := range []string{cwd, root} {
		if e, ok := idx.Entry(filepath.Join(base, arg)); ok {
			return e, nil, nil
		}
	}

	var matches []string
	for _, file := range idx.files {
		if hasSuffixPath(file, arg) {
			matches = append(matches, file)
		}
	}
	switch len(matches) {
	case 0:
		return Entry{}, nil, idx.notFound(arg, root)
	case 1:
		return idx.entries[matches[0]], nil, nil
	}
	candidates := make([]string, len(matches))
	for i, m := range matches {
		candidates[i] = relTo(root, m)
	}
	return Entry{}, candidates, nil
}

// hasSuffixPath reports whether the trailing path components of file are
// those of suffix.
func hasSuffixPath(file, suffix string) bool {
	f := strings.Split(filepath.ToSlash(file), "/")
	s := strings.Split(filepath.ToSlash(filepath.Clean(suffix)), "/")
	if len(s) > len(f) {
		return false
	}
	return slices.Equal(f[len(f)-len(s):], s)
}

func (idx *Index) notFound(arg, root string) error {
	base := filepath.Base(arg)
	var similar []string
	for _, file := range idx.files {
		if filepath.Base(file) == base {
			similar = append(similar, relTo(root, file))
		}
	}
	if len(similar) > 0 {
		return cmkerr.Newf(cmkerr.SourceNotFound, arg, "did you mean %s?", strings.Join(similar, ", "))
	}
	return cmkerr.New(cmkerr.SourceNotFound, arg, "no compile command; is it part of a target? try `cmk refresh`")
}

// Sources lists the translation units, root-relative where possible.
func (idx *Index) Sources(root string) []string {
	var out []string
	for _, file := range idx.files {
		if langs.IsTranslationUnit(file) {
			out = append(out, relTo(root, file))
		}
	}
	return out
}

// CompileOnly returns the argv restricted to compiling the source: -c, or
// /c for cl-style drivers, is added after the program when missing.
func (e Entry) CompileOnly() []string {
	flag := "-c"
	if isClDriver(e.Argv[0]) {
		flag = "/c"
	}
	if slices.Contains(e.Argv, "-c") || slices.Contains(e.Argv, "/c") {
		return slices.Clone(e.Argv)
	}
	return slices.Concat(e.Argv[:1], []string{flag}, e.Argv[1:])
}

func isClDriver(program string) bool {
	name := strings.ToLower(program)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, ".exe")
	return name == "cl" || name == "clang-cl"
}

func relTo(root, path string) string {
	r, err := filepath.Rel(root, path)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(r)
}
