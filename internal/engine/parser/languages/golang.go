package languages

import (
	"driftscan/internal/engine/parser"
	"unicode"
	"unicode/utf8"
)

func extractGo(ast *parser.AST) ([]parser.ImportInfo, []parser.ExportInfo) {
	if ast == nil || ast.RootNode == nil {
		return nil, nil
	}
	x := &extraction{}
	for _, n := range ast.RootNode.Children {
		switch n.Type {
		case "import_declaration":
			walkGoImports(x, n)
		case "function_declaration":
			addGoExport(x, n, childText(n, "identifier"), parser.ExportFunction)
		case "method_declaration":
			addGoExport(x, n, childText(n, "field_identifier"), parser.ExportFunction)
		case "type_declaration":
			for _, spec := range n.Children {
				if spec.Type == "type_spec" || spec.Type == "type_alias" {
					addGoExport(x, spec, childText(spec, "type_identifier"), parser.ExportType)
				}
			}
		case "var_declaration", "const_declaration":
			walkGoValueSpecs(x, n)
		}
	}
	return x.imports, x.exports
}

func walkGoImports(x *extraction, n *parser.ASTNode) {
	for _, c := range n.Children {
		switch c.Type {
		case "import_spec_list":
			walkGoImports(x, c)
		case "import_spec":
			path := unquote(childText(c, "interpreted_string_literal", "raw_string_literal"))
			switch alias := firstChild(c, "package_identifier", "blank_identifier", "dot"); {
			case alias == nil:
				x.addImport(c, path, parser.ImportModule)
			case alias.Type == "blank_identifier":
				x.addImport(c, path, parser.ImportSideEffect)
			case alias.Type == "dot":
				x.addImport(c, path, parser.ImportNamespace, ".")
			default:
				x.addImport(c, path, parser.ImportModule, alias.Text)
			}
		}
	}
}

// walkGoValueSpecs handles var and const declarations, grouped or not.
func walkGoValueSpecs(x *extraction, n *parser.ASTNode) {
	for _, c := range n.Children {
		switch c.Type {
		case "var_spec_list", "const_spec_list":
			walkGoValueSpecs(x, c)
		case "var_spec", "const_spec":
			for _, id := range c.ChildrenOf("identifier") {
				addGoExport(x, id, id.Text, parser.ExportVariable)
			}
		}
	}
}

func addGoExport(x *extraction, n *parser.ASTNode, name string, kind parser.ExportKind) {
	r, _ := utf8.DecodeRuneInString(name)
	if !unicode.IsUpper(r) {
		return
	}
	x.addExport(n, name, kind, "")
}
