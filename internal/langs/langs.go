// Package langs provides shared source-tree conventions for cmk.
//
// # Single Source of Truth
//
// This package defines the mapping between languages and translation-unit
// extensions, and the directory names that build-directory discovery never
// descends into. Components that need either should use this package rather
// than defining their own lists.
//
// # Usage
//
//	if langs.IsTranslationUnit(file) {
//	    // file can be compiled on its own with build-tu
//	}
package langs

import (
	"path/filepath"
	"strings"
)

// Extensions maps language names to the extensions of files that are
// compiled as translation units. Headers are deliberately absent: they
// never appear as the "file" of a compile database entry.
var Extensions = map[string][]string{
	"c":    {".c"},
	"cc":   {".cc", ".cpp", ".cxx", ".c++", ".C"},
	"objc": {".m", ".mm"},
	"cuda": {".cu"},
	"asm":  {".s", ".S", ".asm"},
}

// IgnoredDirs contains directory names skipped during build directory
// discovery, in addition to every hidden (dot-prefixed) directory.
//
// These are dependency install trees and tool caches that may contain a
// CMakeCache.txt of their own (vendored projects, FetchContent checkouts)
// which must not be mistaken for the project's build directory.
var IgnoredDirs = []string{
	"node_modules", // JS tooling
	"_deps",        // FetchContent / CPM sources outside the build dir
	"vendor",       // vendored code
	"third_party",  // vendored code
	"external",     // vendored code
	"CMakeFiles",   // CMake internals
	"__pycache__",  // Python cache
}

// IsIgnoredDir reports whether discovery should skip a directory named name.
func IsIgnoredDir(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." {
		return true
	}
	for _, d := range IgnoredDirs {
		if name == d {
			return true
		}
	}
	return false
}

// translationUnits is the set of every extension in Extensions.
var translationUnits = func() map[string]bool {
	set := make(map[string]bool)
	for _, exts := range Extensions {
		for _, ext := range exts {
			set[ext] = true
		}
	}
	return set
}()

// IsTranslationUnit reports whether path has a translation-unit extension.
func IsTranslationUnit(path string) bool {
	return translationUnits[filepath.Ext(path)]
}
