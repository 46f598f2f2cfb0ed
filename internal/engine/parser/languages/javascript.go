package languages

import (
	"driftscan/internal/engine/parser"
	"strings"
)

// Handles the javascript, typescript and tsx grammars, which share node
// names for module syntax.
var ecmaExtractor = newExtractorEngine(map[string]nodeHandler{
	"import_statement": extractECMAImport,
	"export_statement": extractECMAExport,
	"call_expression":  extractECMACall,
}).extractor()

var ecmaDeclarationKinds = map[string]parser.ExportKind{
	"function_declaration":           parser.ExportFunction,
	"generator_function_declaration": parser.ExportFunction,
	"function_signature":             parser.ExportFunction,
	"class_declaration":              parser.ExportClass,
	"abstract_class_declaration":     parser.ExportClass,
	"lexical_declaration":            parser.ExportVariable,
	"variable_declaration":           parser.ExportVariable,
	"interface_declaration":          parser.ExportType,
	"type_alias_declaration":         parser.ExportType,
	"enum_declaration":               parser.ExportType,
}

func extractECMAImport(x *extraction, n *parser.ASTNode) bool {
	if req := n.Child("import_require_clause"); req != nil {
		x.addImport(n, unquote(childText(req, "string")), parser.ImportRequire, childText(req, "identifier"))
		return true
	}

	source := unquote(childText(n, "string"))
	clause := n.Child("import_clause")
	if clause == nil {
		x.addImport(n, source, parser.ImportSideEffect)
		return true
	}
	for _, c := range clause.Children {
		switch c.Type {
		case "identifier":
			x.addImport(n, source, parser.ImportDefault, c.Text)
		case "namespace_import":
			x.addImport(n, source, parser.ImportNamespace, childText(c, "identifier"))
		case "named_imports":
			var names []string
			for _, spec := range c.ChildrenOf("import_specifier") {
				names = append(names, specifierName(spec))
			}
			x.addImport(n, source, parser.ImportNamed, names...)
		}
	}
	return true
}

// specifierName returns the local binding of an import or export specifier:
// the alias when present, else the name.
func specifierName(spec *parser.ASTNode) string {
	if len(spec.Children) == 0 {
		return spec.Text
	}
	return unquote(spec.Children[len(spec.Children)-1].Text)
}

func extractECMAExport(x *extraction, n *parser.ASTNode) bool {
	source := unquote(childText(n, "string"))

	if source != "" {
		var names []string
		if clause := n.Child("export_clause"); clause != nil {
			for _, spec := range clause.ChildrenOf("export_specifier") {
				names = append(names, specifierName(spec))
			}
		}
		if ns := n.Child("namespace_export"); ns != nil {
			names = append(names, unquote(childText(ns, "identifier", "string")))
		}
		x.addImport(n, source, parser.ImportReExport, names...)
		if len(names) == 0 {
			x.addExport(n, "*", parser.ExportReExport, source)
		}
		for _, name := range names {
			x.addExport(n, name, parser.ExportReExport, source)
		}
		return true
	}

	if strings.HasPrefix(n.Text, "export default") {
		var local string
		if len(n.Children) > 0 {
			local = declarationName(n.Children[0])
		}
		x.addExport(n, "default", parser.ExportDefault, "", local)
		return false
	}

	if clause := n.Child("export_clause"); clause != nil {
		for _, spec := range clause.ChildrenOf("export_specifier") {
			x.addExport(spec, specifierName(spec), parser.ExportNamed, "")
		}
		return true
	}

	for _, c := range n.Children {
		kind, ok := ecmaDeclarationKinds[c.Type]
		if !ok {
			continue
		}
		if kind == parser.ExportVariable {
			for _, decl := range c.ChildrenOf("variable_declarator") {
				x.addExport(decl, declarationName(decl), kind, "")
			}
			continue
		}
		x.addExport(c, declarationName(c), kind, "")
	}
	// Declarations may contain require() calls.
	return false
}

func declarationName(n *parser.ASTNode) string {
	return childText(n, "identifier", "type_identifier")
}

func extractECMACall(x *extraction, n *parser.ASTNode) bool {
	if len(n.Children) < 2 {
		return false
	}
	callee, args := n.Children[0], n.Children[len(n.Children)-1]
	if args.Type != "arguments" || len(args.Children) == 0 || args.Children[0].Type != "string" {
		return false
	}
	source := unquote(args.Children[0].Text)
	switch {
	case callee.Type == "identifier" && callee.Text == "require":
		x.addImport(n, source, parser.ImportRequire)
	case callee.Type == "import":
		x.addImport(n, source, parser.ImportDynamic)
	}
	return false
}
