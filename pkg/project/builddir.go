package project

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/albertocavalcante/cmk/internal/langs"
	"github.com/albertocavalcante/cmk/internal/log"
	"github.com/albertocavalcante/cmk/pkg/cmkerr"
	"github.com/albertocavalcante/cmk/pkg/vfs"
)

const (
	// CacheFile marks a CMake build directory.
	CacheFile = "CMakeCache.txt"

	// DefaultMaxDepth bounds how deep below the root build directories are searched.
	DefaultMaxDepth = 3

	// GeneratorNinja is the only supported generator.
	GeneratorNinja = "Ninja"

	// GeneratorNinjaMulti is rejected explicitly.
	GeneratorNinjaMulti = "Ninja Multi-Config"
)

// SearchOptions bounds build directory discovery.
type SearchOptions struct {
	// MaxDepth is the deepest directory level below the root that is
	// inspected. Zero means DefaultMaxDepth.
	MaxDepth int

	// Exclude holds doublestar patterns, relative to the root and using
	// forward slashes, of directories that are never entered.
	Exclude []string
}

// ReadGenerator returns the CMAKE_GENERATOR recorded in dir's CMakeCache.txt.
func ReadGenerator(fsys vfs.FS, dir string) (string, error) {
	data, err := fsys.ReadFile(filepath.Join(dir, CacheFile))
	if err != nil {
		return "", err
	}
	return parseGenerator(data), nil
}

// parseGenerator extracts CMAKE_GENERATOR from cache entries of the form
// KEY:TYPE=VALUE. Comment lines start with '#' or '//'.
func parseGenerator(data []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(key, ":")
		if name == "CMAKE_GENERATOR" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// FindBuildDirs returns the build directories below root configured for
// single-config Ninja, sorted. The walk is breadth first, does not follow
// symlinks, never enters ignored or excluded directories and never
// descends into a directory that holds a CMakeCache.txt.
//
// A directory configured for Ninja Multi-Config fails the whole search
// with UnsupportedGenerator.
func FindBuildDirs(fsys vfs.FS, root string, opts SearchOptions) ([]string, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, cmkerr.Newf(cmkerr.ConfigParseError, pattern, "invalid search.exclude pattern")
		}
	}

	logger := log.Component("builddir")

	type item struct {
		dir   string
		depth int
	}
	queue := []item{{dir: root}}
	var found []string

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		entries, err := fsys.ReadDir(cur.dir)
		if err != nil {
			if cur.dir == root {
				return nil, fmt.Errorf("failed to read project root: %w", err)
			}
			logger.Debug("skipping unreadable directory", "dir", cur.dir, "error", err)
			continue
		}

		for _, entry := range entries {
			// Symlinks report a non-directory type and are skipped.
			if entry.Type()&fs.ModeSymlink != 0 || !entry.IsDir() {
				continue
			}
			name := entry.Name()
			if langs.IsIgnoredDir(name) {
				continue
			}
			dir := filepath.Join(cur.dir, name)
			if excluded(root, dir, opts.Exclude) {
				logger.Debug("excluded by search.exclude", "dir", dir)
				continue
			}

			generator, err := ReadGenerator(fsys, dir)
			if err == nil {
				switch generator {
				case GeneratorNinja:
					logger.Debug("found build directory", "dir", dir)
					found = append(found, dir)
				case GeneratorNinjaMulti:
					return nil, cmkerr.Newf(cmkerr.UnsupportedGenerator, dir,
						"generator %q is not supported, reconfigure with -G Ninja", generator)
				default:
					logger.Debug("skipping non-Ninja build directory", "dir", dir, "generator", generator)
				}
				continue
			}

			if cur.depth+1 < maxDepth {
				queue = append(queue, item{dir: dir, depth: cur.depth + 1})
			}
		}
	}

	slices.Sort(found)
	return found, nil
}

func excluded(root, dir string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range patterns {
		pattern = strings.TrimSuffix(pattern, "/")
		if base, ok := strings.CutSuffix(pattern, "/**"); ok && base == rel {
			return true
		}
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// Choice carries the inputs used to pick one build directory among candidates.
type Choice struct {
	// Flag is an explicit --build value, absolute or relative to Cwd or the root.
	Flag string

	// Cwd is the caller's working directory.
	Cwd string

	// Accept optionally narrows the candidates, e.g. to those that know a
	// requested target.
	Accept func(dir string) bool

	// Select picks one of the root-relative candidate paths interactively.
	Select func(candidates []string) (string, error)
}

// ChooseBuildDir picks the build directory to use. The order is:
//
//  1. an explicit flag;
//  2. the only candidate;
//  3. the candidate containing the working directory;
//  4. the only candidate accepted by Choice.Accept;
//  5. the interactive selection.
func ChooseBuildDir(fsys vfs.FS, root string, candidates []string, c Choice) (string, error) {
	if c.Flag != "" {
		return resolveFlag(fsys, root, candidates, c)
	}

	switch len(candidates) {
	case 0:
		return "", cmkerr.New(cmkerr.NoBuildDirectory, root,
			"no directory configured with -G Ninja, run cmake -S . -B build -G Ninja")
	case 1:
		return candidates[0], nil
	}

	if c.Cwd != "" {
		for _, dir := range candidates {
			if within(dir, c.Cwd) {
				return dir, nil
			}
		}
	}

	narrowed := candidates
	if c.Accept != nil {
		narrowed = slices.DeleteFunc(slices.Clone(candidates), func(dir string) bool { return !c.Accept(dir) })
		if len(narrowed) == 1 {
			return narrowed[0], nil
		}
		if len(narrowed) == 0 {
			narrowed = candidates
		}
	}

	if c.Select == nil {
		return "", cmkerr.Newf(cmkerr.NoBuildDirectory, root,
			"%d build directories found, pass --build to choose one", len(candidates))
	}

	rels := make([]string, len(narrowed))
	for i, dir := range narrowed {
		rels[i] = relTo(root, dir)
	}
	chosen, err := c.Select(rels)
	if err != nil {
		return "", err
	}
	for i, rel := range rels {
		if rel == chosen {
			return narrowed[i], nil
		}
	}
	return "", cmkerr.New(cmkerr.NoBuildDirectory, chosen, "selection is not a build directory")
}

func resolveFlag(fsys vfs.FS, root string, candidates []string, c Choice) (string, error) {
	var tries []string
	if filepath.IsAbs(c.Flag) {
		tries = []string{filepath.Clean(c.Flag)}
	} else {
		if c.Cwd != "" {
			tries = append(tries, filepath.Join(c.Cwd, c.Flag))
		}
		tries = append(tries, filepath.Join(root, c.Flag))
	}
	tries = slices.DeleteFunc(tries, func(dir string) bool { return !within(root, dir) })
	if len(tries) == 0 {
		return "", cmkerr.Newf(cmkerr.NoBuildDirectory, c.Flag, "build directory is outside the project root %s", root)
	}

	for _, dir := range tries {
		if slices.Contains(candidates, dir) {
			return dir, nil
		}
	}
	for _, dir := range tries {
		generator, err := ReadGenerator(fsys, dir)
		if err != nil {
			continue
		}
		switch generator {
		case GeneratorNinja:
			return dir, nil
		case GeneratorNinjaMulti:
			return "", cmkerr.Newf(cmkerr.UnsupportedGenerator, dir,
				"generator %q is not supported, reconfigure with -G Ninja", generator)
		default:
			return "", cmkerr.Newf(cmkerr.NoBuildDirectory, dir, "generator %q is not Ninja", generator)
		}
	}
	return "", cmkerr.New(cmkerr.NoBuildDirectory, c.Flag, "no "+CacheFile+" found")
}

// within reports whether path is dir or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
