// Package project locates a CMake project and its build directories.
//
// # Discovery Algorithm
//
// Discovery is DETERMINISTIC: given the same filesystem state it always
// returns the same root and the same ordered list of build directories.
//
//  1. FindRoot walks upward from the working directory to the nearest
//     git working tree (the superproject when inside a submodule).
//  2. FindBuildDirs walks downward from the root, breadth first and bounded
//     in depth, collecting directories configured for single-config Ninja.
//  3. ChooseBuildDir disambiguates when more than one candidate exists.
//
// All functions read the filesystem through vfs.FS so they can be tested
// against in-memory fixtures.
package project

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/albertocavalcante/cmk/pkg/cmkerr"
	"github.com/albertocavalcante/cmk/pkg/vfs"
)

// GitMarker is the version-control marker identifying a project root.
const GitMarker = ".git"

// FindRoot returns the nearest ancestor of start (inclusive) containing a
// git marker. The walk is lexical and stops at the filesystem root, so
// symlinked ancestors cannot make it loop.
//
// When the marker is a submodule gitlink, the superproject's working tree
// is returned instead, matching `git rev-parse --show-superproject-working-tree`.
func FindRoot(fsys vfs.FS, start string) (string, error) {
	if !filepath.IsAbs(start) {
		return "", fmt.Errorf("project root search must start from an absolute path, got %q", start)
	}
	start = filepath.Clean(start)

	for dir := start; ; {
		marker := filepath.Join(dir, GitMarker)
		if info, err := fsys.Stat(marker); err == nil {
			if info.IsDir() {
				return dir, nil
			}
			if super, ok := superproject(fsys, dir, marker); ok {
				return FindRoot(fsys, super)
			}
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", cmkerr.New(cmkerr.NoProjectRoot, start, "not inside a git working tree")
		}
		dir = parent
	}
}

// superproject inspects the gitlink file of a submodule checked out at dir.
// Submodule gitlinks point into "<super>/.git/modules/<name>".
func superproject(fsys vfs.FS, dir, marker string) (string, bool) {
	data, err := fsys.ReadFile(marker)
	if err != nil {
		return "", false
	}
	line, _, _ := bytes.Cut(data, []byte("\n"))
	gitdir, ok := strings.CutPrefix(strings.TrimSpace(string(line)), "gitdir:")
	if !ok {
		return "", false
	}
	gitdir = strings.TrimSpace(gitdir)
	if !filepath.IsAbs(gitdir) {
		gitdir = filepath.Join(dir, gitdir)
	}
	gitdir = filepath.ToSlash(filepath.Clean(gitdir))

	super, _, found := strings.Cut(gitdir, "/"+GitMarker+"/modules/")
	if !found || super == "" {
		return "", false
	}
	super = filepath.FromSlash(super)
	if super == dir || !vfs.IsDir(fsys, filepath.Join(super, GitMarker)) {
		return "", false
	}
	return super, true
}
