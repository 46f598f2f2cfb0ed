package parser

import "slices"

// Equal reports whether two results are structurally identical: success,
// language, error list, the AST, and the extracted imports and exports.
func Equal(a, b *ParseResult) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Success != b.Success || a.Language != b.Language {
		return false
	}
	if !slices.Equal(a.Errors, b.Errors) {
		return false
	}
	if !equalAST(a.AST, b.AST) {
		return false
	}
	if !slices.EqualFunc(a.Imports, b.Imports, equalImport) {
		return false
	}
	return slices.EqualFunc(a.Exports, b.Exports, equalExport)
}

func equalAST(a, b *AST) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.SourceText == b.SourceText && EqualNodes(a.RootNode, b.RootNode)
}

// EqualNodes compares two subtrees by type, text, positions and children.
func EqualNodes(a, b *ASTNode) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type != b.Type || a.Text != b.Text ||
		a.StartPosition != b.StartPosition || a.EndPosition != b.EndPosition ||
		len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !EqualNodes(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

func equalImport(a, b ImportInfo) bool {
	return a.Source == b.Source && a.ResolvedPath == b.ResolvedPath && a.Kind == b.Kind &&
		a.Line == b.Line && a.Column == b.Column && slices.Equal(a.Specifiers, b.Specifiers)
}

func equalExport(a, b ExportInfo) bool {
	return a.Name == b.Name && a.Kind == b.Kind && a.Source == b.Source &&
		a.Line == b.Line && a.Column == b.Column && slices.Equal(a.Specifiers, b.Specifiers)
}
