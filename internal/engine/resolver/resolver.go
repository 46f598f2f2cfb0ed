// # internal/engine/resolver/resolver.go
package resolver

import (
	"driftscan/internal/engine/parser"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Resolver maps import specifiers to files of a scanned tree. Resolution is
// purely syntactic: only files passed to New can be targets.
type Resolver struct {
	root  string
	files map[string]bool

	// byName indexes files by base name for suffix lookups.
	byName map[string][]string
	// goPackages lists the non-test .go files per directory.
	goPackages map[string][]string

	mu       sync.Mutex
	goModule map[string]goModule // directory -> enclosing module
}

func New(root string, files []string) *Resolver {
	r := &Resolver{
		root:       filepath.Clean(root),
		files:      make(map[string]bool, len(files)),
		byName:     make(map[string][]string),
		goPackages: make(map[string][]string),
		goModule:   make(map[string]goModule),
	}
	for _, f := range files {
		f = filepath.Clean(f)
		if r.files[f] {
			continue
		}
		r.files[f] = true
		name := filepath.Base(f)
		r.byName[name] = append(r.byName[name], f)
		if strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go") {
			dir := filepath.Dir(f)
			r.goPackages[dir] = append(r.goPackages[dir], f)
		}
	}
	for _, paths := range r.byName {
		sort.Strings(paths)
	}
	for _, paths := range r.goPackages {
		sort.Strings(paths)
	}
	return r
}

func (r *Resolver) Root() string { return r.root }

func (r *Resolver) Has(path string) bool {
	return r.files[filepath.Clean(path)]
}

// Resolve returns the files imp of from refers to, sorted. A Go package
// import yields every file of the package.
func (r *Resolver) Resolve(from, language string, imp parser.ImportInfo) []string {
	source := strings.TrimSpace(imp.Source)
	if source == "" {
		return nil
	}
	var targets []string
	switch language {
	case "javascript", "typescript", "tsx":
		targets = r.resolveECMA(from, source)
	case "css":
		targets = r.resolveCSS(from, source)
	case "go":
		targets = r.resolveGo(from, source)
	case "python":
		targets = r.resolvePython(from, source, imp.Specifiers)
	case "java":
		targets = r.resolveJava(source)
	case "rust":
		targets = r.resolveRust(from, source, imp.Kind)
	}
	return dedupe(targets)
}

// ResolveAll returns a copy of imports with ResolvedPath filled in. An import
// resolving to several files is repeated once per file.
func (r *Resolver) ResolveAll(from, language string, imports []parser.ImportInfo) []parser.ImportInfo {
	out := make([]parser.ImportInfo, 0, len(imports))
	for _, imp := range imports {
		targets := r.Resolve(from, language, imp)
		if len(targets) == 0 {
			imp.ResolvedPath = ""
			out = append(out, imp)
			continue
		}
		for _, t := range targets {
			resolved := imp
			resolved.ResolvedPath = t
			out = append(out, resolved)
		}
	}
	return out
}

// firstExisting returns the first candidate present in the file set.
func (r *Resolver) firstExisting(candidates ...string) []string {
	for _, c := range candidates {
		if c = filepath.Clean(c); r.files[c] {
			return []string{c}
		}
	}
	return nil
}

// withinRoot reports whether path lies inside the scanned root.
func (r *Resolver) withinRoot(path string) bool {
	rel, err := filepath.Rel(r.root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func dedupe(paths []string) []string {
	if len(paths) < 2 {
		return paths
	}
	sort.Strings(paths)
	out := paths[:1]
	for _, p := range paths[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}
