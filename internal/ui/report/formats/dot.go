package formats

import (
	"driftscan/internal/engine/graph"
	"fmt"
	"io"
	"strings"
)

// WriteDOT renders g as a Graphviz digraph. Modules in a cycle are filled red
// and cycle edges are drawn bold red. Targets that are not modules are drawn
// dashed outside the module cluster.
func WriteDOT(w io.Writer, root string, g *graph.Graph) error {
	v := newView(root, g)
	var buf strings.Builder

	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  splines=polyline;\n")
	buf.WriteString("  overlap=false;\n\n")

	buf.WriteString("  subgraph cluster_modules {\n")
	buf.WriteString("    label=\"Modules\";\n")
	buf.WriteString("    style=filled;\n")
	buf.WriteString("    color=\"whitesmoke\";\n")
	buf.WriteString("    node [fillcolor=\"white\", style=\"rounded,filled\"];\n")
	for _, name := range v.names {
		attrs := ""
		if v.cyclic[name] {
			attrs = ", fillcolor=\"mistyrose\", color=\"red\", penwidth=2"
		}
		fmt.Fprintf(&buf, "    %q [label=\"%s\"%s];\n", name, escapeLabel(name), attrs)
	}
	buf.WriteString("  }\n")

	if len(v.external) > 0 {
		buf.WriteString("\n")
		for _, name := range v.external {
			fmt.Fprintf(&buf, "  %q [label=\"%s\", style=\"rounded,dashed\", color=\"gray50\"];\n", name, escapeLabel(name))
		}
	}

	buf.WriteString("\n")
	for _, from := range v.names {
		for _, to := range v.deps[from] {
			if v.cycleEdges[edgeKey(from, to)] {
				fmt.Fprintf(&buf, "  %q -> %q [color=\"red\", penwidth=2.5, label=\"CYCLE\"];\n", from, to)
				continue
			}
			fmt.Fprintf(&buf, "  %q -> %q;\n", from, to)
		}
	}
	buf.WriteString("}\n")

	_, err := io.WriteString(w, buf.String())
	return err
}
