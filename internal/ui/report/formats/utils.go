// Package formats renders the dependency graph for external tools.
package formats

import (
	"driftscan/internal/engine/graph"
	"driftscan/internal/shared/util"
	"fmt"
	"strings"
	"unicode"
)

// view is the graph as seen from root: module paths are relative, modules
// are sorted, and targets outside the module set are listed separately.
type view struct {
	names      []string
	deps       map[string][]string
	external   []string
	cyclic     map[string]bool
	cycleEdges map[string]bool
}

func newView(root string, g *graph.Graph) view {
	v := view{
		deps:       make(map[string][]string),
		cyclic:     make(map[string]bool),
		cycleEdges: make(map[string]bool),
	}
	internal := make(map[string]bool)
	for _, p := range g.Modules() {
		rel := util.RelativeTo(root, p)
		v.names = append(v.names, rel)
		internal[p] = true
	}

	external := make(map[string]bool)
	for _, p := range g.Modules() {
		from := util.RelativeTo(root, p)
		for _, dep := range g.Dependencies(p) {
			to := util.RelativeTo(root, dep)
			v.deps[from] = append(v.deps[from], to)
			if !internal[dep] {
				external[to] = true
			}
		}
	}
	v.external = util.SortedStringKeys(external)

	for _, cycle := range g.DetectCircularDependencies().Cycles {
		for i, p := range cycle {
			from := util.RelativeTo(root, p)
			to := util.RelativeTo(root, cycle[(i+1)%len(cycle)])
			v.cyclic[from] = true
			v.cycleEdges[edgeKey(from, to)] = true
		}
	}
	return v
}

func edgeKey(from, to string) string {
	return from + "\x00" + to
}

func sanitizeID(name string) string {
	if name == "" {
		return "m"
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if unicode.IsDigit(rune(out[0])) {
		return "m_" + out
	}
	return out
}

// makeIDs assigns each name a unique identifier. Names that sanitize to the
// same base get a numeric suffix in input order.
func makeIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
