// # internal/engine/graph/detect.go
package graph

import (
	"container/heap"
	"driftscan/internal/core/errors"
	"slices"
	"strings"
)

type CycleReport struct {
	HasCircular bool
	Cycles      [][]string
}

const (
	white = iota
	grey
	black
)

// HasCircularDependency reports whether any cycle exists among modules.
func (g *Graph) HasCircularDependency() bool {
	return len(g.DetectCircularDependencies().Cycles) > 0
}

// DetectCircularDependencies runs a depth-first search over the modules and
// reports the cycle closed by every back edge. Each cycle starts at its
// smallest path; the list is sorted and free of duplicates.
func (g *Graph) DetectCircularDependencies() CycleReport {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cycles := g.findCycles()
	return CycleReport{HasCircular: len(cycles) > 0, Cycles: cycles}
}

type dfsFrame struct {
	node string
	deps []string
	next int
}

func (g *Graph) findCycles() [][]string {
	color := make(map[string]int, len(g.modules))
	seen := make(map[string]bool)
	var cycles [][]string

	for _, start := range g.sortedModules() {
		if color[start] != white {
			continue
		}
		color[start] = grey
		stack := []dfsFrame{{node: start, deps: g.memberDeps(start)}}
		onPath := map[string]int{start: 0}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(top.deps) {
				next := top.deps[top.next]
				top.next++
				switch color[next] {
				case white:
					color[next] = grey
					onPath[next] = len(stack)
					stack = append(stack, dfsFrame{node: next, deps: g.memberDeps(next)})
				case grey:
					cycle := make([]string, 0, len(stack)-onPath[next])
					for _, f := range stack[onPath[next]:] {
						cycle = append(cycle, f.node)
					}
					cycle = canonicalCycle(cycle)
					if key := strings.Join(cycle, "\x00"); !seen[key] {
						seen[key] = true
						cycles = append(cycles, cycle)
					}
				}
				continue
			}
			color[top.node] = black
			delete(onPath, top.node)
			stack = stack[:len(stack)-1]
		}
	}

	slices.SortFunc(cycles, func(a, b []string) int { return slices.Compare(a, b) })
	return cycles
}

// memberDeps returns the dependencies of path that are modules.
func (g *Graph) memberDeps(path string) []string {
	m, ok := g.modules[path]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(m.Dependencies))
	for _, d := range m.Dependencies {
		if _, ok := g.modules[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

// canonicalCycle rotates cycle to start at its smallest member.
func canonicalCycle(cycle []string) []string {
	minIdx := 0
	for i, p := range cycle {
		if p < cycle[minIdx] {
			minIdx = i
		}
	}
	return append(slices.Clone(cycle[minIdx:]), cycle[:minIdx]...)
}

// ModulesInCycles returns the modules that belong to a strongly connected
// component with more than one member.
func (g *Graph) ModulesInCycles() map[string]bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[string]bool)
	for _, scc := range g.stronglyConnected() {
		if len(scc) > 1 {
			for _, p := range scc {
				out[p] = true
			}
		}
	}
	return out
}

// stronglyConnected is an iterative Tarjan over the module subgraph.
func (g *Graph) stronglyConnected() [][]string {
	index := make(map[string]int, len(g.modules))
	low := make(map[string]int, len(g.modules))
	onStack := make(map[string]bool)
	var stack []string
	var out [][]string
	counter := 0

	for _, start := range g.sortedModules() {
		if _, visited := index[start]; visited {
			continue
		}
		index[start], low[start] = counter, counter
		counter++
		stack = append(stack, start)
		onStack[start] = true
		frames := []dfsFrame{{node: start, deps: g.memberDeps(start)}}

		for len(frames) > 0 {
			top := &frames[len(frames)-1]
			if top.next < len(top.deps) {
				next := top.deps[top.next]
				top.next++
				if _, visited := index[next]; !visited {
					index[next], low[next] = counter, counter
					counter++
					stack = append(stack, next)
					onStack[next] = true
					frames = append(frames, dfsFrame{node: next, deps: g.memberDeps(next)})
				} else if onStack[next] {
					low[top.node] = min(low[top.node], index[next])
				}
				continue
			}

			node := top.node
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := frames[len(frames)-1].node
				low[parent] = min(low[parent], low[node])
			}
			if low[node] == index[node] {
				var scc []string
				for {
					n := len(stack) - 1
					member := stack[n]
					stack = stack[:n]
					onStack[member] = false
					scc = append(scc, member)
					if member == node {
						break
					}
				}
				slices.Sort(scc)
				out = append(out, scc)
			}
		}
	}
	return out
}

// TopologicalOrder returns the modules with every dependency before its
// dependents, ties broken by path. A cyclic graph yields a CodeCycle error
// and no order.
func (g *Graph) TopologicalOrder() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	pending := make(map[string]int, len(g.modules))
	ready := &pathHeap{}
	for _, p := range g.sortedModules() {
		n := len(g.memberDeps(p))
		pending[p] = n
		if n == 0 {
			heap.Push(ready, p)
		}
	}

	order := make([]string, 0, len(g.modules))
	for ready.Len() > 0 {
		p := heap.Pop(ready).(string)
		order = append(order, p)
		for from := range g.dependents[p] {
			if _, ok := g.modules[from]; !ok {
				continue
			}
			pending[from]--
			if pending[from] == 0 {
				heap.Push(ready, from)
			}
		}
	}

	if len(order) < len(g.modules) {
		var remaining []string
		for p, n := range pending {
			if n > 0 {
				remaining = append(remaining, p)
			}
		}
		slices.Sort(remaining)
		err := errors.New(errors.CodeCycle, "dependency graph contains a cycle")
		return nil, errors.AddContext(err, errors.CtxModules, remaining)
	}
	return order, nil
}

type pathHeap []string

func (h pathHeap) Len() int           { return len(h) }
func (h pathHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h pathHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *pathHeap) Push(x any)        { *h = append(*h, x.(string)) }
func (h *pathHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// FindImportChain returns the shortest dependency path from one module to
// another, preferring smaller paths at each step.
func (g *Graph) FindImportChain(from, to string) ([]string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.modules[from]; !ok {
		return nil, false
	}
	if _, ok := g.modules[to]; !ok {
		return nil, false
	}
	if from == to {
		return []string{from}, true
	}

	queue := []string{from}
	visited := map[string]bool{from: true}
	prev := make(map[string]string)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, next := range g.memberDeps(curr) {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr

			if next == to {
				path := []string{to}
				for node := to; node != from; {
					node = prev[node]
					path = append(path, node)
				}
				slices.Reverse(path)
				return path, true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}
