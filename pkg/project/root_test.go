package project_test

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/albertocavalcante/cmk/pkg/cmkerr"
	"github.com/albertocavalcante/cmk/pkg/project"
	"github.com/albertocavalcante/cmk/pkg/vfs"
)

func TestFindRoot(t *testing.T) {
	fsys := vfs.Mount(fstest.MapFS{
		".git/HEAD":            {Data: []byte("ref: refs/heads/main\n")},
		"src/lib/util.cc":      {Data: []byte("")},
		"build/CMakeCache.txt": {Data: []byte("CMAKE_GENERATOR:INTERNAL=Ninja\n")},
	}, "/proj")

	tests := []struct {
		name  string
		start string
	}{
		{"root itself", "/proj"},
		{"nested source dir", "/proj/src/lib"},
		{"inside build dir", "/proj/build"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := project.FindRoot(fsys, tt.start)
			if err != nil {
				t.Fatalf("FindRoot() error = %v", err)
			}
			if got != "/proj" {
				t.Errorf("FindRoot() = %q, want /proj", got)
			}
		})
	}
}

func TestFindRoot_NoRepository(t *testing.T) {
	fsys := vfs.Mount(fstest.MapFS{
		"src/main.cc": {Data: []byte("")},
	}, "/proj")

	_, err := project.FindRoot(fsys, "/proj/src")
	if !errors.Is(err, cmkerr.NoProjectRoot) {
		t.Fatalf("FindRoot() error = %v, want NoProjectRoot", err)
	}
}

func TestFindRoot_RelativeStart(t *testing.T) {
	_, err := project.FindRoot(vfs.Mount(fstest.MapFS{}, "/proj"), "src")
	if err == nil {
		t.Fatal("FindRoot() expected error for a relative start")
	}
}

func TestFindRoot_Submodule(t *testing.T) {
	fsys := vfs.Mount(fstest.MapFS{
		".git/HEAD":              {Data: []byte("ref: refs/heads/main\n")},
		".git/modules/fmt/HEAD":  {Data: []byte("0123abcd\n")},
		"libs/fmt/.git":          {Data: []byte("gitdir: ../../.git/modules/fmt\n")},
		"libs/fmt/src/format.cc": {Data: []byte("")},
	}, "/proj")

	got, err := project.FindRoot(fsys, "/proj/libs/fmt/src")
	if err != nil {
		t.Fatalf("FindRoot() error = %v", err)
	}
	if got != "/proj" {
		t.Errorf("FindRoot() = %q, want the superproject /proj", got)
	}
}

func TestFindRoot_Worktree(t *testing.T) {
	fsys := vfs.Mount(fstest.MapFS{
		".git":        {Data: []byte("gitdir: /src/main/.git/worktrees/feature\n")},
		"src/main.cc": {Data: []byte("")},
	}, "/proj")

	got, err := project.FindRoot(fsys, "/proj/src")
	if err != nil {
		t.Fatalf("FindRoot() error = %v", err)
	}
	if got != "/proj" {
		t.Errorf("FindRoot() = %q, want the worktree /proj", got)
	}
}
