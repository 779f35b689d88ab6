package config

import (
	"strings"

	"github.com/albertocavalcante/cmk/pkg/cmkerr"
)

// expander resolves ${NAME} references with memoisation.
//
// Lookup order is vars, then builtins, then the inherited environment.
// Only vars are expanded recursively; builtin and inherited values are
// substituted as they are.
type expander struct {
	vars     map[string]string
	builtins map[string]string
	environ  map[string]string

	resolved map[string]string
	stack    []string
}

func newExpander(vars, builtins, environ map[string]string) *expander {
	return &expander{
		vars:     vars,
		builtins: builtins,
		environ:  environ,
		resolved: make(map[string]string, len(vars)),
	}
}

// variable returns the expanded value of vars[name].
func (e *expander) variable(name string) (string, error) {
	if v, ok := e.resolved[name]; ok {
		return v, nil
	}
	for i, n := range e.stack {
		if n == name {
			chain := append(append([]string{}, e.stack[i:]...), name)
			return "", cmkerr.New(cmkerr.VariableCycle, strings.Join(chain, " -> "), "")
		}
	}

	e.stack = append(e.stack, name)
	v, err := e.expand(e.vars[name], keyPath("vars", name))
	e.stack = e.stack[:len(e.stack)-1]
	if err != nil {
		return "", err
	}
	e.resolved[name] = v
	return v, nil
}

// lookup resolves one reference made from key.
func (e *expander) lookup(name, key string) (string, error) {
	if _, ok := e.vars[name]; ok {
		return e.variable(name)
	}
	if v, ok := e.builtins[name]; ok {
		return v, nil
	}
	if v, ok := e.environ[name]; ok {
		return v, nil
	}
	return "", cmkerr.Newf(cmkerr.UndefinedVariable, name, "referenced by %s", key)
}

// expand substitutes every well-formed ${NAME} in s. Anything else,
// including an unterminated "${", is kept literally.
func (e *expander) expand(s, key string) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}

	var b strings.Builder
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			b.WriteString(s)
			return b.String(), nil
		}
		end := strings.IndexByte(s[start+2:], '}')
		if end < 0 {
			b.WriteString(s)
			return b.String(), nil
		}
		name := s[start+2 : start+2+end]
		b.WriteString(s[:start])
		if !isName(name) {
			b.WriteString("${")
			s = s[start+2:]
			continue
		}
		v, err := e.lookup(name, key)
		if err != nil {
			return "", err
		}
		b.WriteString(v)
		s = s[start+2+end+1:]
	}
}

func (e *expander) directive(d Directive, key string) (Directive, error) {
	if d.Kind == Set {
		v, err := e.expand(d.Value, key)
		if err != nil {
			return Directive{}, err
		}
		return SetTo(v), nil
	}
	list := make([]string, len(d.List))
	for i, item := range d.List {
		v, err := e.expand(item, key)
		if err != nil {
			return Directive{}, err
		}
		list[i] = v
	}
	return Directive{Kind: d.Kind, List: list}, nil
}

func (e *expander) layer(l Layer, prefix string) (Layer, error) {
	out := make(Layer, len(l))
	for _, name := range l.Names() {
		d, err := e.directive(l[name], keyPath(prefix, name))
		if err != nil {
			return nil, err
		}
		out[name] = d
	}
	return out, nil
}

// isName reports whether s matches [A-Za-z_][A-Za-z0-9_]*.
func isName(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && '0' <= c && c <= '9':
		default:
			return false
		}
	}
	return true
}
