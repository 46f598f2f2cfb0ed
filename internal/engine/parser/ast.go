// # internal/engine/parser/ast.go
package parser

import "fmt"

// Position is a zero-based row and byte column.
type Position struct {
	Row    int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Column)
}

// Before reports whether p sorts strictly before o.
func (p Position) Before(o Position) bool {
	return p.Row < o.Row || (p.Row == o.Row && p.Column < o.Column)
}

type Range struct {
	Start Position
	End   Position
}

// Contains reports whether pos lies within [Start, End].
func (r Range) Contains(pos Position) bool {
	return !pos.Before(r.Start) && !r.End.Before(pos)
}

// ASTNode is a syntax node. Children are owned exclusively by their parent;
// nodes carry no parent pointers.
type ASTNode struct {
	Type          string
	Text          string
	StartPosition Position
	EndPosition   Position
	Children      []*ASTNode
}

func (n *ASTNode) Range() Range {
	return Range{Start: n.StartPosition, End: n.EndPosition}
}

// Child returns the first direct child with the given type.
func (n *ASTNode) Child(nodeType string) *ASTNode {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Type == nodeType {
			return c
		}
	}
	return nil
}

// ChildrenOf returns every direct child with the given type.
func (n *ASTNode) ChildrenOf(nodeType string) []*ASTNode {
	if n == nil {
		return nil
	}
	var out []*ASTNode
	for _, c := range n.Children {
		if c.Type == nodeType {
			out = append(out, c)
		}
	}
	return out
}

type AST struct {
	RootNode   *ASTNode
	SourceText string
}

type ParseError struct {
	Message  string
	Position Position
}

func (e ParseError) String() string {
	return fmt.Sprintf("%s: %s", e.Position, e.Message)
}

// ParseResult is the outcome of parsing one file version. A failed parse
// still carries the best partial AST the plugin could build.
type ParseResult struct {
	Success  bool
	Language string
	AST      *AST
	Errors   []ParseError
	Imports  []ImportInfo
	Exports  []ExportInfo
}

// TextChange describes one edit region. Positions of the n-th change refer
// to the text produced by applying the previous n-1 changes.
type TextChange struct {
	StartPosition  Position
	OldEndPosition Position
	NewEndPosition Position
	NewText        string
}

type ImportKind string

const (
	ImportDefault    ImportKind = "default"
	ImportNamed      ImportKind = "named"
	ImportNamespace  ImportKind = "namespace"
	ImportSideEffect ImportKind = "side-effect"
	ImportRequire    ImportKind = "require"
	ImportDynamic    ImportKind = "dynamic"
	ImportReExport   ImportKind = "re-export"
	ImportModule     ImportKind = "module"
)

// ImportInfo is a syntactic import fact. Line and Column are 1-based.
type ImportInfo struct {
	Source       string
	ResolvedPath string
	Specifiers   []string
	Kind         ImportKind
	Line         int
	Column       int
}

type ExportKind string

const (
	ExportFunction ExportKind = "function"
	ExportClass    ExportKind = "class"
	ExportVariable ExportKind = "variable"
	ExportType     ExportKind = "type"
	ExportDefault  ExportKind = "default"
	ExportNamed    ExportKind = "named"
	ExportReExport ExportKind = "re-export"
)

// ExportInfo is a syntactic export fact. Source is set for re-exports.
type ExportInfo struct {
	Name       string
	Kind       ExportKind
	Source     string
	Specifiers []string
	Line       int
	Column     int
}
