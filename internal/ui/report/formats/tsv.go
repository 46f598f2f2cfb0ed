package formats

import (
	"driftscan/internal/engine/graph"
	"driftscan/internal/shared/util"
	"fmt"
	"io"
	"strings"
)

// WriteTSV lists one row per resolved import. A module that imports the same
// target twice produces two rows.
func WriteTSV(w io.Writer, root string, g *graph.Graph) error {
	var buf strings.Builder
	buf.WriteString("From\tTo\tSource\tLine\tColumn\n")

	for _, p := range g.Modules() {
		mod, ok := g.Module(p)
		if !ok {
			continue
		}
		from := util.RelativeTo(root, p)
		for _, imp := range mod.Imports {
			if imp.ResolvedPath == "" || imp.ResolvedPath == p {
				continue
			}
			fmt.Fprintf(&buf, "%s\t%s\t%s\t%d\t%d\n",
				from, util.RelativeTo(root, imp.ResolvedPath), imp.Source, imp.Line, imp.Column)
		}
	}

	_, err := io.WriteString(w, buf.String())
	return err
}
