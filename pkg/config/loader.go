package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/albertocavalcante/cmk/internal/log"
	"github.com/albertocavalcante/cmk/pkg/cmkerr"
	"github.com/albertocavalcante/cmk/pkg/vfs"
)

// GlobalConfigDir is the name of the global config directory inside the
// user's config directory.
const GlobalConfigDir = "cmk"

// Environment variables read by LoadWith.
const (
	EnvSelector    = "CMK_SELECTOR"
	EnvDefaultJobs = "CMK_DEFAULT_JOBS"
)

// LoadOptions controls the optional layers of LoadWith.
type LoadOptions struct {
	// GlobalPath is the global user config file. Empty skips the layer.
	GlobalPath string

	// Environ is the inherited process environment. CMK_SELECTOR overrides
	// the selector program.
	Environ map[string]string
}

// Load reads root/.cmk.toml over the built-in defaults. A missing file
// yields the defaults.
func Load(fsys vfs.FS, root string) (*Document, error) {
	return LoadWith(fsys, root, LoadOptions{})
}

// LoadWith loads configuration from all layers in order of precedence:
//  1. Built-in defaults
//  2. Global user config ([search] and [selector] only)
//  3. Project config (.cmk.toml at root)
//  4. Environment variables (CMK_*)
func LoadWith(fsys vfs.FS, root string, opts LoadOptions) (*Document, error) {
	doc := Defaults()

	if opts.GlobalPath != "" {
		global, err := loadFile(fsys, opts.GlobalPath)
		if err != nil {
			return nil, err
		}
		doc.mergeTools(global)
	}

	path := filepath.Join(root, FileName)
	project, err := loadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	if project != nil {
		doc.Path = path
		doc.Vars = project.Vars
		doc.Env = project.Env
		doc.Platforms = project.Platforms
		doc.Build = project.Build
		doc.Run = project.Run
		doc.RunTargets = project.RunTargets
		doc.mergeTools(project)
	}

	if v := opts.Environ[EnvSelector]; v != "" {
		doc.Selector.Program = v
	}
	return doc, nil
}

// GlobalConfigPath returns the path of the global config file, or "" when
// the user config directory is unknown.
func GlobalConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, GlobalConfigDir, "config.toml")
}

// loadFile parses path. A missing file returns nil, nil.
func loadFile(fsys vfs.FS, path string) (*Document, error) {
	data, err := fsys.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, cmkerr.Wrap(cmkerr.ConfigParseError, path, err)
	}
	doc, err := Parse(string(data))
	if err != nil {
		var ce *cmkerr.Error
		if errors.As(err, &ce) {
			ce.Subject = path
		}
		return nil, err
	}
	doc.Path = path
	return doc, nil
}

type rawDocument struct {
	Vars     map[string]string         `toml:"vars"`
	Env      map[string]toml.Primitive `toml:"env"`
	Search   SearchConfig              `toml:"search"`
	Selector SelectorConfig            `toml:"selector"`
}

// Parse decodes a .cmk.toml document. Errors are ConfigParseError.
func Parse(data string) (*Document, error) {
	var raw rawDocument
	md, err := toml.Decode(data, &raw)
	if err != nil {
		return nil, parseError(err)
	}

	doc := &Document{
		Vars:       raw.Vars,
		Env:        Layer{},
		Platforms:  map[string]Layer{},
		Build:      Layer{},
		Run:        Layer{},
		RunTargets: map[string]Layer{},
		Search:     raw.Search,
		Selector:   raw.Selector,
	}
	if doc.Vars == nil {
		doc.Vars = map[string]string{}
	}
	if doc.Search.MaxDepth < 0 {
		return nil, cmkerr.Newf(cmkerr.ConfigParseError, "", "search.max_depth must not be negative, got %d", doc.Search.MaxDepth)
	}

	for _, key := range slices.Sorted(maps.Keys(raw.Env)) {
		var value any
		if err := md.PrimitiveDecode(raw.Env[key], &value); err != nil {
			return nil, parseError(err)
		}
		if err := doc.addEnv(key, value); err != nil {
			return nil, err
		}
	}

	for _, key := range md.Undecoded() {
		if len(key) > 0 && key[0] == "env" {
			continue
		}
		log.Component("config").Warn("unknown configuration key", "key", key.String())
	}
	return doc, nil
}

// addEnv files one entry of the [env] table.
func (d *Document) addEnv(key string, value any) error {
	if !isSection(key) {
		dir, err := parseDirective(keyPath("env", key), value)
		if err != nil {
			return err
		}
		d.Env[key] = dir
		return nil
	}

	table, ok := value.(map[string]any)
	if !ok {
		return shapeError(keyPath("env", key), "is reserved and must be a table")
	}

	switch key {
	case sectionBuild:
		return parseLayer(d.Build, keyPath("env", key), table)
	case sectionRun:
		for _, name := range slices.Sorted(maps.Keys(table)) {
			prefix := keyPath("env", sectionRun, name)
			if sub, ok := table[name].(map[string]any); ok && !isDirectiveTable(sub) {
				layer := Layer{}
				if err := parseLayer(layer, prefix, sub); err != nil {
					return err
				}
				d.RunTargets[name] = layer
				continue
			}
			dir, err := parseDirective(prefix, table[name])
			if err != nil {
				return err
			}
			d.Run[name] = dir
		}
		return nil
	default:
		layer := Layer{}
		if err := parseLayer(layer, keyPath("env", key), table); err != nil {
			return err
		}
		d.Platforms[key] = layer
		return nil
	}
}

func parseLayer(into Layer, prefix string, table map[string]any) error {
	for _, name := range slices.Sorted(maps.Keys(table)) {
		dir, err := parseDirective(keyPath(prefix, name), table[name])
		if err != nil {
			return err
		}
		into[name] = dir
	}
	return nil
}

var directiveKeys = []string{"set", "prepend", "append"}

func isDirectiveTable(table map[string]any) bool {
	for _, k := range directiveKeys {
		if _, ok := table[k]; ok {
			return true
		}
	}
	return false
}

// parseDirective converts a decoded TOML value into a Directive:
// a string sets, an array prepends, a table names its operation.
func parseDirective(key string, value any) (Directive, error) {
	switch v := value.(type) {
	case string:
		return SetTo(v), nil
	case []any:
		list, err := stringList(key, v)
		if err != nil {
			return Directive{}, err
		}
		return PrependOf(list...), nil
	case map[string]any:
		return parseDirectiveTable(key, v)
	default:
		return Directive{}, shapeError(key, fmt.Sprintf("must be a string, an array or a table, got %T", value))
	}
}

func parseDirectiveTable(key string, table map[string]any) (Directive, error) {
	var found []string
	for _, k := range slices.Sorted(maps.Keys(table)) {
		if !slices.Contains(directiveKeys, k) {
			return Directive{}, shapeError(key, fmt.Sprintf("has unknown key %q", k))
		}
		found = append(found, k)
	}
	if len(found) != 1 {
		return Directive{}, shapeError(key, "must have exactly one of set, prepend or append")
	}

	value := table[found[0]]
	if found[0] == "set" {
		s, ok := value.(string)
		if !ok {
			return Directive{}, shapeError(key+".set", fmt.Sprintf("must be a string, got %T", value))
		}
		return SetTo(s), nil
	}

	var list []string
	switch v := value.(type) {
	case string:
		list = []string{v}
	case []any:
		var err error
		if list, err = stringList(key+"."+found[0], v); err != nil {
			return Directive{}, err
		}
	default:
		return Directive{}, shapeError(key+"."+found[0], fmt.Sprintf("must be an array of strings, got %T", value))
	}
	if found[0] == "prepend" {
		return PrependOf(list...), nil
	}
	return AppendOf(list...), nil
}

func stringList(key string, values []any) ([]string, error) {
	list := make([]string, 0, len(values))
	for i, item := range values {
		s, ok := item.(string)
		if !ok {
			return nil, shapeError(key, fmt.Sprintf("entry %d must be a string, got %T", i, item))
		}
		list = append(list, s)
	}
	return list, nil
}

func shapeError(key, detail string) error {
	return cmkerr.New(cmkerr.ConfigParseError, "", key+" "+detail)
}

// parseError converts a TOML decode error, keeping its line when known.
func parseError(err error) error {
	var pe toml.ParseError
	if errors.As(err, &pe) {
		detail := pe.Message
		if detail == "" {
			detail = strings.TrimPrefix(pe.Error(), "toml: ")
		}
		if pe.Position.Line > 0 {
			detail = "line " + strconv.Itoa(pe.Position.Line) + ": " + detail
		}
		return cmkerr.New(cmkerr.ConfigParseError, "", detail)
	}
	return cmkerr.Wrap(cmkerr.ConfigParseError, "", err)
}
