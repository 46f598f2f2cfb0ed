package languages

import "driftscan/internal/engine/parser"

var rustItemKinds = map[string]parser.ExportKind{
	"function_item": parser.ExportFunction,
	"struct_item":   parser.ExportType,
	"enum_item":     parser.ExportType,
	"union_item":    parser.ExportType,
	"trait_item":    parser.ExportType,
	"type_item":     parser.ExportType,
	"const_item":    parser.ExportVariable,
	"static_item":   parser.ExportVariable,
	"mod_item":      parser.ExportNamed,
}

func extractRust(ast *parser.AST) ([]parser.ImportInfo, []parser.ExportInfo) {
	if ast == nil || ast.RootNode == nil {
		return nil, nil
	}
	x := &extraction{}
	for _, n := range ast.RootNode.Children {
		switch n.Type {
		case "use_declaration":
			if arg := lastNonVisibility(n); arg != nil {
				x.addImport(n, arg.Text, parser.ImportNamed)
			}
		case "extern_crate_declaration":
			ids := n.ChildrenOf("identifier")
			if len(ids) > 0 {
				var alias string
				if len(ids) > 1 {
					alias = ids[1].Text
				}
				x.addImport(n, ids[0].Text, parser.ImportDefault, alias)
			}
		case "mod_item":
			// "mod x;" pulls in another file; an inline body does not.
			if n.Child("declaration_list") == nil {
				x.addImport(n, childText(n, "identifier"), parser.ImportModule)
			}
		}

		kind, ok := rustItemKinds[n.Type]
		if !ok || n.Child("visibility_modifier") == nil {
			continue
		}
		x.addExport(n, childText(n, "identifier", "type_identifier"), kind, "")
	}
	return x.imports, x.exports
}

func lastNonVisibility(n *parser.ASTNode) *parser.ASTNode {
	for i := len(n.Children) - 1; i >= 0; i-- {
		if n.Children[i].Type != "visibility_modifier" {
			return n.Children[i]
		}
	}
	return nil
}
