package languages

import (
	"driftscan/internal/engine/parser"
	"strings"
)

func extractPython(ast *parser.AST) ([]parser.ImportInfo, []parser.ExportInfo) {
	if ast == nil || ast.RootNode == nil {
		return nil, nil
	}
	x := &extraction{}
	// Imports may appear inside functions and conditionals.
	parser.Walk(ast.RootNode, func(n *parser.ASTNode) bool {
		switch n.Type {
		case "import_statement":
			extractPythonImport(x, n)
			return false
		case "import_from_statement":
			extractPythonFromImport(x, n)
			return false
		}
		return true
	})

	for _, n := range ast.RootNode.Children {
		extractPythonDefinition(x, n, n)
	}
	return x.imports, x.exports
}

func extractPythonImport(x *extraction, n *parser.ASTNode) {
	for _, c := range n.Children {
		switch c.Type {
		case "dotted_name":
			x.addImport(n, c.Text, parser.ImportModule)
		case "aliased_import":
			x.addImport(n, childText(c, "dotted_name"), parser.ImportModule, childText(c, "identifier"))
		}
	}
}

// extractPythonFromImport keeps relative levels in the source: "from ..a
// import b" yields source "..a".
func extractPythonFromImport(x *extraction, n *parser.ASTNode) {
	if len(n.Children) == 0 {
		return
	}
	module := n.Children[0]
	source := strings.TrimSpace(module.Text)

	var names []string
	kind := parser.ImportNamed
	for _, c := range n.Children[1:] {
		switch c.Type {
		case "dotted_name":
			names = append(names, c.Text)
		case "aliased_import":
			names = append(names, childText(c, "identifier"))
		case "wildcard_import":
			kind = parser.ImportNamespace
			names = append(names, "*")
		}
	}
	x.addImport(n, source, kind, names...)
}

func extractPythonDefinition(x *extraction, n, at *parser.ASTNode) {
	switch n.Type {
	case "decorated_definition":
		if def := firstChild(n, "function_definition", "class_definition"); def != nil {
			extractPythonDefinition(x, def, at)
		}
	case "function_definition":
		addPythonExport(x, at, childText(n, "identifier"), parser.ExportFunction)
	case "class_definition":
		addPythonExport(x, at, childText(n, "identifier"), parser.ExportClass)
	case "expression_statement":
		if assign := n.Child("assignment"); assign != nil && len(assign.Children) > 0 && assign.Children[0].Type == "identifier" {
			addPythonExport(x, at, assign.Children[0].Text, parser.ExportVariable)
		}
	}
}

func addPythonExport(x *extraction, n *parser.ASTNode, name string, kind parser.ExportKind) {
	if strings.HasPrefix(name, "_") {
		return
	}
	x.addExport(n, name, kind, "")
}
