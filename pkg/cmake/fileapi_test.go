package cmake_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/albertocavalcante/cmk/pkg/cmake"
	"github.com/albertocavalcante/cmk/pkg/vfs"
)

const reply = ".cmake/api/v1/reply/"

// replyFiles is a codemodel reply with one executable, one library and a
// stale index that must be ignored.
var replyFiles = map[string]string{
	reply + "index-2024-01-01T00-00-00-0000.json": `{"reply": {}}`,
	reply + "index-2024-06-01T10-00-00-0000.json": `{
  "reply": {
    "client-cmk": {
      "codemodel-v2": {"kind": "codemodel", "jsonFile": "codemodel-v2-abc.json"}
    }
  }
}`,
	reply + "codemodel-v2-abc.json": `{
  "configurations": [
    {
      "name": "Debug",
      "targets": [
        {"name": "server", "jsonFile": "target-server-Debug-1.json"},
        {"name": "core", "jsonFile": "target-core-Debug-2.json"},
        {"name": "client", "jsonFile": "target-client-Debug-3.json"}
      ]
    }
  ]
}`,
	reply + "target-server-Debug-1.json": `{"name": "server", "type": "EXECUTABLE", "artifacts": [{"path": "bin/server"}]}`,
	reply + "target-core-Debug-2.json":   `{"name": "core", "type": "STATIC_LIBRARY", "artifacts": [{"path": "lib/libcore.a"}]}`,
	reply + "target-client-Debug-3.json": `{"name": "client", "type": "EXECUTABLE", "artifacts": [{"path": "/opt/out/client"}]}`,
}

func mapFS(prefix string, files map[string]string) fstest.MapFS {
	m := fstest.MapFS{}
	for name, data := range files {
		m[prefix+name] = &fstest.MapFile{Data: []byte(data)}
	}
	return m
}

func TestReadTargets(t *testing.T) {
	fsys := vfs.Mount(mapFS("build/", replyFiles), "/proj")

	targets, err := cmake.ReadTargets(fsys, "/proj/build")
	if err != nil {
		t.Fatalf("ReadTargets() error = %v", err)
	}

	want := []cmake.Target{
		{Name: "client", Kind: cmake.Executable, Artifacts: []string{"/opt/out/client"}},
		{Name: "core", Kind: cmake.StaticLibrary, Artifacts: []string{"/proj/build/lib/libcore.a"}},
		{Name: "server", Kind: cmake.Executable, Artifacts: []string{"/proj/build/bin/server"}},
	}
	if diff := cmp.Diff(want, targets); diff != "" {
		t.Errorf("ReadTargets() mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"client", "server"}, cmake.Names(cmake.Executables(targets))); diff != "" {
		t.Errorf("Executables() mismatch (-want +got):\n%s", diff)
	}
	if _, ok := cmake.Find(targets, "core"); !ok {
		t.Error("Find(core) should succeed")
	}
	if _, ok := cmake.Find(targets, "nope"); ok {
		t.Error("Find(nope) should fail")
	}
}

func TestReadTargetsNoReply(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{"no reply directory", nil},
		{"no index", map[string]string{reply + "codemodel-v2-abc.json": "{}"}},
		{"other client", map[string]string{reply + "index-1.json": `{"reply": {"client-vscode": {}}}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := vfs.Mount(mapFS("build/", tt.files), "/proj")
			if _, err := cmake.ReadTargets(fsys, "/proj/build"); !errors.Is(err, cmake.ErrNoReply) {
				t.Errorf("ReadTargets() error = %v, want ErrNoReply", err)
			}
		})
	}
}

func TestTargetsConfiguresOnce(t *testing.T) {
	buildDir := t.TempDir()

	calls := 0
	configure := func(ctx context.Context, dir string) error {
		calls++
		if _, err := os.Stat(cmake.QueryPath(buildDir)); err != nil {
			t.Errorf("query should exist before configuring: %v", err)
		}
		for name, data := range replyFiles {
			path := filepath.Join(buildDir, filepath.FromSlash(name))
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
				return err
			}
		}
		return nil
	}

	api := &cmake.API{FS: vfs.OS(), Configure: configure}
	targets, err := api.Targets(context.Background(), buildDir)
	if err != nil {
		t.Fatalf("Targets() error = %v", err)
	}
	if len(targets) != 3 {
		t.Errorf("Targets() returned %d targets, want 3", len(targets))
	}

	if _, err := api.Targets(context.Background(), buildDir); err != nil {
		t.Fatalf("second Targets() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("configure called %d times, want 1", calls)
	}
}

func TestTargetsConfigureError(t *testing.T) {
	boom := errors.New("cmake failed")
	var registered []string
	api := &cmake.API{
		FS: vfs.Mount(fstest.MapFS{}, "/proj"),
		Register: func(dir string) error {
			registered = append(registered, dir)
			return nil
		},
		Configure: func(context.Context, string) error { return boom },
	}

	_, err := api.Targets(context.Background(), "/proj/build")
	if !errors.Is(err, boom) {
		t.Errorf("Targets() error = %v, want the configure error", err)
	}
	if len(registered) != 1 || registered[0] != "/proj/build" {
		t.Errorf("registered = %v, want [/proj/build]", registered)
	}
}

func TestArgs(t *testing.T) {
	if diff := cmp.Diff([]string{"cmake", "-S", "/proj", "-B", "/proj/build"}, cmake.ConfigureArgs("/proj", "/proj/build")); diff != "" {
		t.Errorf("ConfigureArgs() mismatch (-want +got):\n%s", diff)
	}
	want := []string{"cmake", "--build", "/proj/build", "--target", "all", "-j", "3"}
	if diff := cmp.Diff(want, cmake.BuildArgs("/proj/build", "all", 3)); diff != "" {
		t.Errorf("BuildArgs() mismatch (-want +got):\n%s", diff)
	}
}
