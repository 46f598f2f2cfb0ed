package resolver

import (
	"path/filepath"
	"strings"
)

// resolvePython handles relative sources ("..pkg.mod") against the importing
// file and absolute dotted modules against every ancestor directory up to
// the root, so that src layouts resolve.
func (r *Resolver) resolvePython(from, source string, specifiers []string) []string {
	if strings.HasPrefix(source, ".") {
		level := len(source) - len(strings.TrimLeft(source, "."))
		dir := filepath.Dir(from)
		for i := 1; i < level; i++ {
			dir = filepath.Dir(dir)
		}
		return r.pythonFrom(dir, strings.TrimLeft(source, "."), specifiers)
	}

	for dir := filepath.Dir(from); r.withinRoot(dir); dir = filepath.Dir(dir) {
		if found := r.pythonFrom(dir, source, specifiers); len(found) > 0 {
			return found
		}
		if dir == r.root {
			break
		}
	}
	return nil
}

// pythonFrom resolves a dotted module below dir. When the module itself is a
// package, imported names that are submodules resolve too.
func (r *Resolver) pythonFrom(dir, module string, specifiers []string) []string {
	base := dir
	if module != "" {
		base = filepath.Join(dir, filepath.FromSlash(strings.ReplaceAll(module, ".", "/")))
	}

	var out []string
	for _, spec := range specifiers {
		if spec == "*" || spec == "" {
			continue
		}
		sub := filepath.Join(base, spec)
		out = append(out, r.firstExisting(sub+".py", filepath.Join(sub, "__init__.py"))...)
	}
	if module == "" {
		if len(out) == 0 {
			out = r.firstExisting(filepath.Join(base, "__init__.py"))
		}
		return out
	}
	if len(out) > 0 {
		return out
	}
	return r.firstExisting(base+".py", filepath.Join(base, "__init__.py"))
}
