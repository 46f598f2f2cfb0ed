package languages

import (
	"driftscan/internal/engine/parser"
	"strings"
)

func extractCSS(ast *parser.AST) ([]parser.ImportInfo, []parser.ExportInfo) {
	if ast == nil || ast.RootNode == nil {
		return nil, nil
	}
	x := &extraction{}
	for _, n := range ast.RootNode.ChildrenOf("import_statement") {
		if len(n.Children) == 0 {
			continue
		}
		target := n.Children[0]
		source := target.Text
		if target.Type == "call_expression" {
			args := target.Child("arguments")
			if args == nil || len(args.Children) == 0 {
				continue
			}
			source = args.Children[0].Text
		}
		x.addImport(n, unquote(strings.TrimSpace(source)), parser.ImportSideEffect)
	}
	return x.imports, nil
}
