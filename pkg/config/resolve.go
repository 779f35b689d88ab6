package config

import (
	"maps"
	"slices"
)

// Builtin variable names available to every expansion.
const (
	BuiltinProjectRoot      = "PROJECT_ROOT"
	BuiltinBuildDir         = "BUILD_DIR"
	BuiltinProjectBuildRoot = "PROJECT_BUILD_ROOT"
)

// Inputs are the ambient values a document is resolved against.
type Inputs struct {
	Root     string
	BuildDir string
	Environ  map[string]string
	// Platform selects the env.<platform> overlay. Empty means HostPlatform().
	Platform string
}

// Resolved is a document with every reference expanded.
type Resolved struct {
	Vars map[string]string

	// Env is the base environment with the host platform overlay applied.
	Env        Layer
	Build      Layer
	Run        Layer
	RunTargets map[string]Layer
}

// BuildEnv is the directive set for cmake, ninja and compilers.
func (r *Resolved) BuildEnv() Layer {
	return Overlay(r.Env, r.Build)
}

// RunEnv is the directive set for running target.
func (r *Resolved) RunEnv(target string) Layer {
	return Overlay(r.Env, r.Run, r.RunTargets[target])
}

// Resolve expands every variable and directive in doc. Overlays for other
// platforms are ignored.
func Resolve(doc *Document, in Inputs) (*Resolved, error) {
	platform := in.Platform
	if platform == "" {
		platform = HostPlatform()
	}

	builtins := map[string]string{BuiltinProjectRoot: in.Root}
	if in.BuildDir != "" {
		builtins[BuiltinBuildDir] = in.BuildDir
		builtins[BuiltinProjectBuildRoot] = in.BuildDir
	}
	e := newExpander(doc.Vars, builtins, in.Environ)

	r := &Resolved{
		Vars:       make(map[string]string, len(doc.Vars)),
		RunTargets: make(map[string]Layer, len(doc.RunTargets)),
	}
	for _, name := range slices.Sorted(maps.Keys(doc.Vars)) {
		v, err := e.variable(name)
		if err != nil {
			return nil, err
		}
		r.Vars[name] = v
	}

	base, err := e.layer(doc.Env, "env")
	if err != nil {
		return nil, err
	}
	host, err := e.layer(doc.Platforms[platform], keyPath("env", platform))
	if err != nil {
		return nil, err
	}
	r.Env = Overlay(base, host)

	if r.Build, err = e.layer(doc.Build, keyPath("env", sectionBuild)); err != nil {
		return nil, err
	}
	if r.Run, err = e.layer(doc.Run, keyPath("env", sectionRun)); err != nil {
		return nil, err
	}
	for _, target := range slices.Sorted(maps.Keys(doc.RunTargets)) {
		l, err := e.layer(doc.RunTargets[target], keyPath("env", sectionRun, target))
		if err != nil {
			return nil, err
		}
		r.RunTargets[target] = l
	}
	return r, nil
}
