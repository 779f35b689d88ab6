// Package environ builds the environment handed to subprocesses from the
// inherited process environment and a set of resolved directives.
package environ

import (
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/albertocavalcante/cmk/pkg/config"
)

// Environment maps variable names to values.
type Environment map[string]string

// FromSlice parses KEY=VALUE pairs as returned by os.Environ. Later
// duplicates win. Entries without '=' are ignored.
func FromSlice(pairs []string) Environment {
	env := make(Environment, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// Current returns the environment of this process.
func Current() Environment {
	return FromSlice(os.Environ())
}

// Slice returns the environment as sorted KEY=VALUE pairs.
func (e Environment) Slice() []string {
	out := make([]string, 0, len(e))
	for _, k := range slices.Sorted(maps.Keys(e)) {
		out = append(out, k+"="+e[k])
	}
	return out
}

// Clone returns a copy of e.
func (e Environment) Clone() Environment {
	out := make(Environment, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Build applies directives to a copy of inherited. Set replaces the value;
// Prepend and Append join their entries with sep before or after the
// inherited value, which is omitted when empty.
func Build(directives config.Layer, inherited Environment, sep string) Environment {
	env := inherited.Clone()
	for name, d := range directives {
		env[name] = value(d, inherited[name], sep)
	}
	return env
}

func value(d config.Directive, inherited, sep string) string {
	switch d.Kind {
	case config.Prepend:
		return join(sep, d.List, inherited, true)
	case config.Append:
		return join(sep, d.List, inherited, false)
	default:
		return d.Value
	}
}

func join(sep string, entries []string, inherited string, before bool) string {
	parts := make([]string, 0, len(entries)+1)
	if !before && inherited != "" {
		parts = append(parts, inherited)
	}
	parts = append(parts, entries...)
	if before && inherited != "" {
		parts = append(parts, inherited)
	}
	return strings.Join(parts, sep)
}

// Separator is the host path-list separator.
const Separator = string(os.PathListSeparator)

// Delta returns the variables of env named by directives, in the order of
// their names.
func Delta(env Environment, directives config.Layer) []string {
	out := make([]string, 0, len(directives))
	for _, name := range directives.Names() {
		out = append(out, name+"="+env[name])
	}
	return out
}
