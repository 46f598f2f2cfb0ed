// # internal/engine/graph/graph.go
package graph

import (
	"driftscan/internal/engine/parser"
	"driftscan/internal/shared/observability"
	"slices"
	"sort"
	"sync"
)

// Graph is a module dependency graph keyed by file path. Edges are stored as
// path lists, so nodes never reference each other directly.
type Graph struct {
	mu sync.RWMutex

	modules map[string]*Module
	// dependents is derived from the modules' edges. It may name targets
	// that are not modules yet.
	dependents map[string]map[string]bool
	edgeCount  int
}

type Module struct {
	Path    string
	Imports []parser.ImportInfo
	Exports []parser.ExportInfo
	// Dependencies is sorted and free of duplicates and self edges.
	Dependencies []string
}

func New() *Graph {
	return &Graph{
		modules:    make(map[string]*Module),
		dependents: make(map[string]map[string]bool),
	}
}

// AddModule records or replaces the module at path. Its edges are the
// resolved paths of imports; unresolved imports contribute no edge.
func (g *Graph) AddModule(path string, imports []parser.ImportInfo, exports []parser.ExportInfo) {
	deps := edgesOf(path, imports)

	g.mu.Lock()
	defer g.mu.Unlock()

	var old []string
	if prev, ok := g.modules[path]; ok {
		old = prev.Dependencies
	}
	g.modules[path] = &Module{
		Path:         path,
		Imports:      slices.Clone(imports),
		Exports:      slices.Clone(exports),
		Dependencies: deps,
	}
	g.reindex(path, old, deps)
	g.publish()
}

// RemoveModule deletes the module and its outgoing edges. Edges of other
// modules pointing at path are kept.
func (g *Graph) RemoveModule(path string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	prev, ok := g.modules[path]
	if !ok {
		return false
	}
	delete(g.modules, path)
	g.reindex(path, prev.Dependencies, nil)
	g.publish()
	return true
}

// reindex applies the difference between old and next, both sorted, to the
// reverse index.
func (g *Graph) reindex(from string, old, next []string) {
	i, j := 0, 0
	for i < len(old) || j < len(next) {
		switch {
		case j == len(next) || (i < len(old) && old[i] < next[j]):
			g.unlink(old[i], from)
			i++
		case i == len(old) || next[j] < old[i]:
			g.link(next[j], from)
			j++
		default:
			i++
			j++
		}
	}
}

func (g *Graph) link(to, from string) {
	set, ok := g.dependents[to]
	if !ok {
		set = make(map[string]bool)
		g.dependents[to] = set
	}
	if !set[from] {
		set[from] = true
		g.edgeCount++
	}
}

func (g *Graph) unlink(to, from string) {
	set, ok := g.dependents[to]
	if !ok || !set[from] {
		return
	}
	delete(set, from)
	g.edgeCount--
	if len(set) == 0 {
		delete(g.dependents, to)
	}
}

func (g *Graph) publish() {
	observability.GraphNodes.Set(float64(len(g.modules)))
	observability.GraphEdges.Set(float64(g.edgeCount))
}

// edgesOf derives the dependency list. A module resolving to itself gets no
// edge: it is still listed in Imports but never forms a cycle.
func edgesOf(path string, imports []parser.ImportInfo) []string {
	seen := make(map[string]bool, len(imports))
	var deps []string
	for _, imp := range imports {
		to := imp.ResolvedPath
		if to == "" || to == path || seen[to] {
			continue
		}
		seen[to] = true
		deps = append(deps, to)
	}
	sort.Strings(deps)
	return deps
}

func (g *Graph) HasModule(path string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.modules[path]
	return ok
}

// Module returns a copy of the module at path.
func (g *Graph) Module(path string) (Module, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.modules[path]
	if !ok {
		return Module{}, false
	}
	return Module{
		Path:         m.Path,
		Imports:      slices.Clone(m.Imports),
		Exports:      slices.Clone(m.Exports),
		Dependencies: slices.Clone(m.Dependencies),
	}, true
}

// Modules returns every module path, sorted.
func (g *Graph) Modules() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sortedModules()
}

func (g *Graph) sortedModules() []string {
	out := make([]string, 0, len(g.modules))
	for p := range g.modules {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Dependencies returns the outgoing edges of path, including targets that
// are not modules.
func (g *Graph) Dependencies(path string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if m, ok := g.modules[path]; ok {
		return slices.Clone(m.Dependencies)
	}
	return nil
}

// Dependents returns the modules importing path, sorted.
func (g *Graph) Dependents(path string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependents[path])
}

// TransitiveDependents returns every module that reaches path through one
// or more edges, sorted. path itself is included only when it sits on a
// cycle.
func (g *Graph) TransitiveDependents(path string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]bool)
	queue := []string{path}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, from := range sortedKeys(g.dependents[curr]) {
			if seen[from] {
				continue
			}
			seen[from] = true
			queue = append(queue, from)
		}
	}
	return sortedKeys(seen)
}

// Size returns the number of modules.
func (g *Graph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.modules)
}

// EdgeCount returns the number of edges, including edges to non-modules.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edgeCount
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
