package vfs_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/albertocavalcante/cmk/pkg/vfs"
)

func TestMount(t *testing.T) {
	fsys := vfs.Mount(fstest.MapFS{
		".git/HEAD":        {Data: []byte("ref: refs/heads/main\n")},
		"src/main.cc":      {Data: []byte("int main() {}\n")},
		"build/.ninja_log": {Data: []byte("# ninja log v5\n")},
	}, "/proj")

	data, err := fsys.ReadFile("/proj/src/main.cc")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "int main() {}\n" {
		t.Errorf("ReadFile() = %q", data)
	}

	if !vfs.IsDir(fsys, "/proj/.git") {
		t.Error("/proj/.git should be a directory")
	}
	if !vfs.IsDir(fsys, "/proj") {
		t.Error("/proj should be a directory")
	}
	if !vfs.IsDir(fsys, "/") {
		t.Error("ancestors of the mount point should be directories")
	}

	entries, err := fsys.ReadDir("/")
	if err != nil || len(entries) != 0 {
		t.Errorf("ReadDir(/) = %v, %v; want empty listing", entries, err)
	}

	if _, err := fsys.Stat("/other/file"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat outside the mount = %v, want ErrNotExist", err)
	}
	if _, err := fsys.ReadFile("/"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile of an ancestor = %v, want ErrNotExist", err)
	}
}

func TestOS(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "CMakeCache.txt")
	if err := os.WriteFile(path, []byte("CMAKE_GENERATOR:INTERNAL=Ninja\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fsys := vfs.OS()
	if !vfs.Exists(fsys, path) {
		t.Error("Exists() = false for a written file")
	}
	if vfs.IsDir(fsys, path) {
		t.Error("IsDir() = true for a regular file")
	}
	entries, err := fsys.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Errorf("ReadDir() = %v, %v; want one entry", entries, err)
	}
}
