package languages

import (
	"driftscan/internal/engine/parser"
	"slices"
	"strings"
)

var javaTypeKinds = map[string]parser.ExportKind{
	"class_declaration":           parser.ExportClass,
	"record_declaration":          parser.ExportClass,
	"interface_declaration":       parser.ExportType,
	"enum_declaration":            parser.ExportType,
	"annotation_type_declaration": parser.ExportType,
}

func extractJava(ast *parser.AST) ([]parser.ImportInfo, []parser.ExportInfo) {
	if ast == nil || ast.RootNode == nil {
		return nil, nil
	}
	x := &extraction{}
	for _, n := range ast.RootNode.Children {
		if n.Type == "import_declaration" {
			source := childText(n, "scoped_identifier", "identifier")
			if n.Child("asterisk") != nil {
				x.addImport(n, source+".*", parser.ImportNamespace, "*")
				continue
			}
			name := source
			if i := strings.LastIndexByte(source, '.'); i >= 0 {
				name = source[i+1:]
			}
			x.addImport(n, source, parser.ImportNamed, name)
			continue
		}
		kind, ok := javaTypeKinds[n.Type]
		if !ok || !javaPublic(n) {
			continue
		}
		x.addExport(n, childText(n, "identifier"), kind, "")
	}
	return x.imports, x.exports
}

func javaPublic(n *parser.ASTNode) bool {
	mods := n.Child("modifiers")
	return mods != nil && slices.Contains(strings.Fields(mods.Text), "public")
}
