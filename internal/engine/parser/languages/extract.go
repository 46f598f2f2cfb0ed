package languages

import (
	"driftscan/internal/engine/parser"
	"strings"
)

// nodeHandler processes one node. Returning true stops the walk from
// descending into the node's children.
type nodeHandler func(x *extraction, n *parser.ASTNode) bool

// extraction accumulates the facts of one file.
type extraction struct {
	imports []parser.ImportInfo
	exports []parser.ExportInfo
}

type extractorEngine struct {
	handlers map[string]nodeHandler
}

func newExtractorEngine(handlers map[string]nodeHandler) *extractorEngine {
	return &extractorEngine{handlers: handlers}
}

func (e *extractorEngine) walk(x *extraction, n *parser.ASTNode) {
	if n == nil {
		return
	}
	if h, ok := e.handlers[n.Type]; ok && h(x, n) {
		return
	}
	for _, c := range n.Children {
		e.walk(x, c)
	}
}

// extractor builds an Extractor that walks the whole tree.
func (e *extractorEngine) extractor() Extractor {
	return func(ast *parser.AST) ([]parser.ImportInfo, []parser.ExportInfo) {
		if ast == nil || ast.RootNode == nil {
			return nil, nil
		}
		x := &extraction{}
		e.walk(x, ast.RootNode)
		return x.imports, x.exports
	}
}

func (x *extraction) addImport(n *parser.ASTNode, source string, kind parser.ImportKind, specifiers ...string) {
	if source == "" {
		return
	}
	line, col := location(n)
	x.imports = append(x.imports, parser.ImportInfo{
		Source:     source,
		Specifiers: nonEmpty(specifiers),
		Kind:       kind,
		Line:       line,
		Column:     col,
	})
}

func (x *extraction) addExport(n *parser.ASTNode, name string, kind parser.ExportKind, source string, specifiers ...string) {
	if name == "" {
		return
	}
	line, col := location(n)
	x.exports = append(x.exports, parser.ExportInfo{
		Name:       name,
		Kind:       kind,
		Source:     source,
		Specifiers: nonEmpty(specifiers),
		Line:       line,
		Column:     col,
	})
}

// location returns the 1-based line and column of n.
func location(n *parser.ASTNode) (int, int) {
	return n.StartPosition.Row + 1, n.StartPosition.Column + 1
}

// firstChild returns the first direct child whose type is one of types.
func firstChild(n *parser.ASTNode, types ...string) *parser.ASTNode {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		for _, t := range types {
			if c.Type == t {
				return c
			}
		}
	}
	return nil
}

func childText(n *parser.ASTNode, types ...string) string {
	if c := firstChild(n, types...); c != nil {
		return c.Text
	}
	return ""
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		switch s[0] {
		case '"', '\'', '`':
			if s[len(s)-1] == s[0] {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
