// Package config loads and resolves the per-project .cmk.toml file.
//
// A document has three layers of configuration:
//  1. Built-in defaults (selector "fzf", search depth 3)
//  2. Global user config (~/.config/cmk/config.toml), [selector] and [search] only
//  3. Project config (.cmk.toml at the project root)
//
// The environment of a project is described by directives:
//
//	[vars]
//	DEPS_DIR = "${PROJECT_ROOT}/.deps"
//
//	[env]
//	CC = "clang"                                 # set
//	PATH = { prepend = ["${DEPS_DIR}/bin"] }     # prepend to inherited PATH
//	PKG_CONFIG_PATH = ["${DEPS_DIR}/lib/pkgconfig"] # array shorthand for prepend
//
//	[env.linux]                                  # host platform overlay
//	LD_LIBRARY_PATH = { prepend = ["${DEPS_DIR}/lib"] }
//
//	[env.build]                                  # cmake / ninja / compiler only
//	[env.run]                                    # programs started by `cmk run`
//	[env.run.my_target]                          # only when running my_target
package config

import (
	"fmt"
	"maps"
	"runtime"
	"slices"
	"strings"
)

// FileName is the name of the project-level config file.
const FileName = ".cmk.toml"

// DirectiveKind tags a Directive.
type DirectiveKind int

const (
	Set DirectiveKind = iota
	Prepend
	Append
)

func (k DirectiveKind) String() string {
	switch k {
	case Set:
		return "set"
	case Prepend:
		return "prepend"
	case Append:
		return "append"
	}
	return fmt.Sprintf("DirectiveKind(%d)", int(k))
}

// Directive says how one environment variable is derived. Value is used
// by Set, List by Prepend and Append.
type Directive struct {
	Kind  DirectiveKind
	Value string
	List  []string
}

// SetTo returns a Set directive.
func SetTo(value string) Directive { return Directive{Kind: Set, Value: value} }

// PrependOf returns a Prepend directive.
func PrependOf(entries ...string) Directive { return Directive{Kind: Prepend, List: entries} }

// AppendOf returns an Append directive.
func AppendOf(entries ...string) Directive { return Directive{Kind: Append, List: entries} }

func (d Directive) String() string {
	if d.Kind == Set {
		return fmt.Sprintf("set %q", d.Value)
	}
	return fmt.Sprintf("%s %q", d.Kind, d.List)
}

// Layer maps environment variable names to directives.
type Layer map[string]Directive

// Names returns the variable names in l, sorted.
func (l Layer) Names() []string {
	return slices.Sorted(maps.Keys(l))
}

// Platforms are the identifiers accepted as env.<platform> overlays.
var Platforms = []string{"linux", "macos", "windows", "freebsd", "openbsd", "netbsd"}

const (
	sectionBuild = "build"
	sectionRun   = "run"
)

// isSection reports whether key names an env sub-table rather than a variable.
func isSection(key string) bool {
	return key == sectionBuild || key == sectionRun || slices.Contains(Platforms, key)
}

// HostPlatform returns the overlay identifier of the running OS.
func HostPlatform() string {
	return PlatformOf(runtime.GOOS)
}

// PlatformOf maps a GOOS value to its overlay identifier.
func PlatformOf(goos string) string {
	if goos == "darwin" {
		return "macos"
	}
	return goos
}

// SearchConfig bounds build directory discovery.
type SearchConfig struct {
	// MaxDepth is how many levels below the root are inspected.
	MaxDepth int `toml:"max_depth"`

	// Exclude lists doublestar patterns of directories never entered.
	Exclude []string `toml:"exclude"`
}

// SelectorConfig names the interactive fuzzy selector.
type SelectorConfig struct {
	// Program is the selector executable, looked up on PATH.
	Program string `toml:"program"`

	// Args are extra arguments passed before cmk's own.
	Args []string `toml:"args"`
}

// Document is a parsed configuration, not yet expanded.
type Document struct {
	// Path is the file the document was read from, empty when absent.
	Path string

	Vars       map[string]string
	Env        Layer
	Platforms  map[string]Layer
	Build      Layer
	Run        Layer
	RunTargets map[string]Layer

	Search   SearchConfig
	Selector SelectorConfig
}

// Defaults returns the empty document with built-in defaults.
func Defaults() *Document {
	return &Document{
		Vars:       map[string]string{},
		Env:        Layer{},
		Platforms:  map[string]Layer{},
		Build:      Layer{},
		Run:        Layer{},
		RunTargets: map[string]Layer{},
		Search:     SearchConfig{MaxDepth: 3},
		Selector:   SelectorConfig{Program: "fzf"},
	}
}

// mergeTools applies the non-empty [search] and [selector] settings of other.
func (d *Document) mergeTools(other *Document) {
	if other == nil {
		return
	}
	if other.Search.MaxDepth > 0 {
		d.Search.MaxDepth = other.Search.MaxDepth
	}
	if len(other.Search.Exclude) > 0 {
		d.Search.Exclude = append(d.Search.Exclude, other.Search.Exclude...)
	}
	if other.Selector.Program != "" {
		d.Selector.Program = other.Selector.Program
	}
	if len(other.Selector.Args) > 0 {
		d.Selector.Args = other.Selector.Args
	}
}

// keyPath joins a dotted config key for diagnostics.
func keyPath(parts ...string) string {
	return strings.Join(parts, ".")
}
