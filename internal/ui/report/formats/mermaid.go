package formats

import (
	"driftscan/internal/engine/graph"
	"fmt"
	"io"
	"strings"
)

// WriteMermaid renders g as a left-to-right Mermaid flowchart. Cycle edges
// are styled through linkStyle, which Mermaid indexes by edge order.
func WriteMermaid(w io.Writer, root string, g *graph.Graph) error {
	v := newView(root, g)
	ids := makeIDs(append(append([]string(nil), v.names...), v.external...))

	var buf strings.Builder
	buf.WriteString("flowchart LR\n")
	buf.WriteString("  classDef cycle fill:#ffe4e1,stroke:#d00,stroke-width:2px\n")
	buf.WriteString("  classDef external stroke-dasharray: 4 4,color:#666\n")

	for _, name := range v.names {
		fmt.Fprintf(&buf, "  %s[\"%s\"]\n", ids[name], escapeLabel(name))
	}
	for _, name := range v.external {
		fmt.Fprintf(&buf, "  %s[\"%s\"]:::external\n", ids[name], escapeLabel(name))
	}

	var cycleLinks []string
	edge := 0
	for _, from := range v.names {
		for _, to := range v.deps[from] {
			fmt.Fprintf(&buf, "  %s --> %s\n", ids[from], ids[to])
			if v.cycleEdges[edgeKey(from, to)] {
				cycleLinks = append(cycleLinks, fmt.Sprint(edge))
			}
			edge++
		}
	}

	var cyclic []string
	for _, name := range v.names {
		if v.cyclic[name] {
			cyclic = append(cyclic, ids[name])
		}
	}
	if len(cyclic) > 0 {
		fmt.Fprintf(&buf, "  class %s cycle\n", strings.Join(cyclic, ","))
	}
	if len(cycleLinks) > 0 {
		fmt.Fprintf(&buf, "  linkStyle %s stroke:#d00,stroke-width:2px\n", strings.Join(cycleLinks, ","))
	}

	_, err := io.WriteString(w, buf.String())
	return err
}
