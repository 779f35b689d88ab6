// Package vfs is the filesystem capability used by the discovery code.
//
// Paths are absolute host paths. OS() reads the real filesystem; Mount()
// exposes an io/fs.FS (typically a testing/fstest.MapFS) as if it were
// mounted at an absolute directory, so root and build-directory discovery
// can be exercised against in-memory fixtures.
package vfs

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FS is the read-only view of the filesystem that discovery needs.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	ReadFile(name string) ([]byte, error)
}

type osFS struct{}

// OS returns the host filesystem.
func OS() FS { return osFS{} }

func (osFS) Stat(name string) (fs.FileInfo, error)      { return os.Stat(name) }
func (osFS) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }
func (osFS) ReadFile(name string) ([]byte, error)       { return os.ReadFile(name) }

// mounted serves fsys under the absolute directory at.
type mounted struct {
	fsys fs.FS
	at   string
}

// Mount exposes fsys at the absolute directory at. Paths outside at do
// not exist, except the ancestors of at, which are reported as empty
// directories so upward walks terminate naturally.
func Mount(fsys fs.FS, at string) FS {
	return &mounted{fsys: fsys, at: filepath.Clean(at)}
}

// rel converts an absolute host path into an fs.FS path.
func (m *mounted) rel(name string) (string, bool) {
	name = filepath.Clean(name)
	if name == m.at {
		return ".", true
	}
	r, err := filepath.Rel(m.at, name)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(r), true
}

func (m *mounted) isAncestor(name string) bool {
	name = filepath.Clean(name)
	r, err := filepath.Rel(name, m.at)
	return err == nil && r != "." && !strings.HasPrefix(r, "..")
}

func (m *mounted) Stat(name string) (fs.FileInfo, error) {
	if p, ok := m.rel(name); ok {
		return fs.Stat(m.fsys, p)
	}
	if m.isAncestor(name) {
		return fs.Stat(m.fsys, ".")
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

func (m *mounted) ReadDir(name string) ([]fs.DirEntry, error) {
	if p, ok := m.rel(name); ok {
		return fs.ReadDir(m.fsys, p)
	}
	if m.isAncestor(name) {
		return nil, nil
	}
	return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
}

func (m *mounted) ReadFile(name string) ([]byte, error) {
	if p, ok := m.rel(name); ok {
		return fs.ReadFile(m.fsys, p)
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// Exists reports whether name exists in fsys.
func Exists(fsys FS, name string) bool {
	_, err := fsys.Stat(name)
	return err == nil
}

// IsDir reports whether name is a directory in fsys.
func IsDir(fsys FS, name string) bool {
	info, err := fsys.Stat(name)
	return err == nil && info.IsDir()
}
