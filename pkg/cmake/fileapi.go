// Package cmake reads the targets of a build directory through the CMake
// file API (https://cmake.org/cmake/help/latest/manual/cmake-file-api.7.html).
//
// cmk registers a stateless client query for the codemodel. CMake answers
// it on the next configure, so a build directory configured before the
// query existed has no reply until cmake is re-run.
package cmake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/albertocavalcante/cmk/internal/log"
	"github.com/albertocavalcante/cmk/pkg/vfs"
)

// ClientName is the file API client name used by cmk.
const ClientName = "client-cmk"

const (
	apiDir       = ".cmake/api/v1"
	codemodelObj = "codemodel-v2"
)

// ErrNoReply is returned when the build directory has no codemodel reply.
var ErrNoReply = errors.New("no CMake file API reply")

// Target kinds reported by the codemodel.
const (
	Executable    = "EXECUTABLE"
	StaticLibrary = "STATIC_LIBRARY"
	SharedLibrary = "SHARED_LIBRARY"
	ModuleLibrary = "MODULE_LIBRARY"
	ObjectLibrary = "OBJECT_LIBRARY"
	Utility       = "UTILITY"
)

// Target is one target of the codemodel.
type Target struct {
	Name string
	Kind string
	// Artifacts are absolute paths of the files the target produces.
	Artifacts []string
}

// IsExecutable reports whether t links a program.
func (t Target) IsExecutable() bool {
	return t.Kind == Executable && len(t.Artifacts) > 0
}

// QueryPath returns the client query file inside buildDir.
func QueryPath(buildDir string) string {
	return filepath.Join(buildDir, filepath.FromSlash(apiDir), "query", ClientName, codemodelObj)
}

// EnsureQuery creates the codemodel query for buildDir if it is missing.
func EnsureQuery(buildDir string) error {
	path := QueryPath(buildDir)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating file API query: %w", err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return fmt.Errorf("creating file API query: %w", err)
	}
	return nil
}

type replyIndex struct {
	Reply map[string]json.RawMessage `json:"reply"`
}

type replyRef struct {
	JSONFile string `json:"jsonFile"`
}

type codemodel struct {
	Configurations []struct {
		Name    string `json:"name"`
		Targets []struct {
			Name     string `json:"name"`
			JSONFile string `json:"jsonFile"`
		} `json:"targets"`
	} `json:"configurations"`
}

type targetObject struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Artifacts []struct {
		Path string `json:"path"`
	} `json:"artifacts"`
}

// ReadTargets reads the targets from the newest reply in buildDir.
// Targets are sorted by name.
func ReadTargets(fsys vfs.FS, buildDir string) ([]Target, error) {
	replyDir := filepath.Join(buildDir, filepath.FromSlash(apiDir), "reply")

	index, err := newestIndex(fsys, replyDir)
	if err != nil {
		return nil, err
	}

	var idx replyIndex
	if err := readJSON(fsys, filepath.Join(replyDir, index), &idx); err != nil {
		return nil, err
	}
	var client map[string]replyRef
	if raw, ok := idx.Reply[ClientName]; ok {
		if err := json.Unmarshal(raw, &client); err != nil {
			return nil, fmt.Errorf("%s: %w", index, err)
		}
	}
	ref, ok := client[codemodelObj]
	if !ok || ref.JSONFile == "" {
		return nil, fmt.Errorf("%w: %s does not answer %s", ErrNoReply, index, ClientName)
	}

	var cm codemodel
	if err := readJSON(fsys, filepath.Join(replyDir, ref.JSONFile), &cm); err != nil {
		return nil, err
	}
	if len(cm.Configurations) == 0 {
		return nil, nil
	}

	var targets []Target
	for _, t := range cm.Configurations[0].Targets {
		var obj targetObject
		if err := readJSON(fsys, filepath.Join(replyDir, t.JSONFile), &obj); err != nil {
			return nil, err
		}
		target := Target{Name: obj.Name, Kind: obj.Type}
		for _, a := range obj.Artifacts {
			path := filepath.FromSlash(a.Path)
			if !filepath.IsAbs(path) {
				path = filepath.Join(buildDir, path)
			}
			target.Artifacts = append(target.Artifacts, path)
		}
		targets = append(targets, target)
	}
	slices.SortFunc(targets, func(a, b Target) int { return strings.Compare(a.Name, b.Name) })
	return targets, nil
}

// newestIndex returns the name of the most recent index file. CMake names
// them index-<timestamp>.json so the lexically largest is the newest.
func newestIndex(fsys vfs.FS, replyDir string) (string, error) {
	entries, err := fsys.ReadDir(replyDir)
	if err != nil {
		return "", ErrNoReply
	}
	var newest string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "index-") && strings.HasSuffix(name, ".json") && name > newest {
			newest = name
		}
	}
	if newest == "" {
		return "", ErrNoReply
	}
	return newest, nil
}

func readJSON(fsys vfs.FS, path string, v any) error {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// API reads targets, configuring the build directory when CMake has not
// answered the query yet.
type API struct {
	FS vfs.FS

	// Register writes the query file for a build directory.
	// Nil means EnsureQuery.
	Register func(buildDir string) error

	// Configure re-runs cmake for a build directory.
	Configure func(ctx context.Context, buildDir string) error
}

// Targets returns the targets of buildDir. When no reply exists yet the
// query is registered and cmake is configured once before reading again.
func (a *API) Targets(ctx context.Context, buildDir string) ([]Target, error) {
	targets, err := ReadTargets(a.FS, buildDir)
	if !errors.Is(err, ErrNoReply) {
		return targets, err
	}

	log.Component("cmake").Info("querying targets through the CMake file API", "build", buildDir)
	register := a.Register
	if register == nil {
		register = EnsureQuery
	}
	if err := register(buildDir); err != nil {
		return nil, err
	}
	if a.Configure == nil {
		return nil, err
	}
	if err := a.Configure(ctx, buildDir); err != nil {
		return nil, err
	}
	return ReadTargets(a.FS, buildDir)
}

// Find returns the target called name.
func Find(targets []Target, name string) (Target, bool) {
	for _, t := range targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}

// Executables filters targets to those producing a program.
func Executables(targets []Target) []Target {
	var out []Target
	for _, t := range targets {
		if t.IsExecutable() {
			out = append(out, t)
		}
	}
	return out
}

// Names returns the names of targets.
func Names(targets []Target) []string {
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.Name
	}
	return names
}

// ConfigureArgs returns the cmake invocation that (re)configures buildDir
// for the sources in root.
func ConfigureArgs(root, buildDir string) []string {
	return []string{"cmake", "-S", root, "-B", buildDir}
}

// BuildArgs returns the cmake invocation that builds target with jobs
// parallel jobs.
func BuildArgs(buildDir, target string, jobs int) []string {
	return []string{"cmake", "--build", buildDir, "--target", target, "-j", fmt.Sprint(jobs)}
}
