package resolver

import (
	"driftscan/internal/engine/parser"
	"path/filepath"
	"strings"
)

// resolveRust handles "mod x;" declarations and crate-relative use paths.
func (r *Resolver) resolveRust(from, source string, kind parser.ImportKind) []string {
	switch kind {
	case parser.ImportModule:
		return r.firstExisting(rustModuleCandidates(rustModuleDir(from), source)...)
	case parser.ImportNamed:
		return r.resolveRustUse(from, source)
	}
	return nil
}

// rustModuleDir is the directory holding the children of from's module.
func rustModuleDir(from string) string {
	dir := filepath.Dir(from)
	switch filepath.Base(from) {
	case "mod.rs", "lib.rs", "main.rs":
		return dir
	}
	return filepath.Join(dir, strings.TrimSuffix(filepath.Base(from), ".rs"))
}

func rustModuleCandidates(dir, name string) []string {
	return []string{
		filepath.Join(dir, name+".rs"),
		filepath.Join(dir, name, "mod.rs"),
	}
}

// resolveRustUse resolves the longest module prefix of a crate::, self:: or
// super:: path.
func (r *Resolver) resolveRustUse(from, source string) []string {
	if i := strings.Index(source, "{"); i >= 0 {
		source = source[:i]
	}
	if i := strings.Index(source, " as "); i >= 0 {
		source = source[:i]
	}
	segments := strings.Split(strings.Trim(source, ": "), "::")
	if len(segments) < 2 {
		return nil
	}

	var dir string
	switch segments[0] {
	case "crate":
		root, ok := r.rustCrateRoot(from)
		if !ok {
			return nil
		}
		dir = root
	case "self":
		dir = rustModuleDir(from)
	case "super":
		dir = filepath.Dir(rustModuleDir(from))
	default:
		return nil
	}

	path := segments[1:]
	for n := len(path); n >= 1; n-- {
		parent := filepath.Join(append([]string{dir}, path[:n-1]...)...)
		if found := r.firstExisting(rustModuleCandidates(parent, path[n-1])...); len(found) > 0 {
			return found
		}
	}
	return nil
}

// rustCrateRoot finds the nearest ancestor directory holding lib.rs or
// main.rs.
func (r *Resolver) rustCrateRoot(from string) (string, bool) {
	for dir := filepath.Dir(from); r.withinRoot(dir); dir = filepath.Dir(dir) {
		if r.files[filepath.Join(dir, "lib.rs")] || r.files[filepath.Join(dir, "main.rs")] {
			return dir, true
		}
		if dir == r.root {
			break
		}
	}
	return "", false
}
