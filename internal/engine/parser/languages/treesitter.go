package languages

import (
	"driftscan/internal/engine/parser"
	"fmt"
	"slices"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Extractor derives import and export facts from a converted AST.
type Extractor func(ast *parser.AST) ([]parser.ImportInfo, []parser.ExportInfo)

// Plugin is a tree-sitter backed parser.IncrementalPlugin.
type Plugin struct {
	language   string
	extensions []string
	pool       *ParserPool
	extract    Extractor
}

func NewPlugin(language string, extensions []string, grammar *sitter.Language, extract Extractor) *Plugin {
	return &Plugin{
		language:   language,
		extensions: slices.Clone(extensions),
		pool:       NewParserPool(grammar),
		extract:    extract,
	}
}

func (p *Plugin) Language() string { return p.language }

func (p *Plugin) Extensions() []string { return slices.Clone(p.extensions) }

func (p *Plugin) CanHandle(ext string) bool {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return slices.Contains(p.extensions, ext)
}

func (p *Plugin) Parse(source []byte, filePath string) *parser.ParseResult {
	res, tree := p.ParseTree(source, filePath)
	if tree != nil {
		tree.Close()
	}
	return res
}

func (p *Plugin) Query(ast *parser.AST, pattern string) ([]*parser.ASTNode, error) {
	return parser.Query(ast, pattern)
}

func (p *Plugin) ParseTree(source []byte, filePath string) (*parser.ParseResult, parser.SyntaxTree) {
	sp := p.pool.Get()
	defer p.pool.Put(sp)

	tree := sp.Parse(source, nil)
	if tree == nil {
		return p.failure(fmt.Sprintf("tree-sitter produced no tree for %s", filePath)), nil
	}
	return p.build(tree, source), &syntaxTree{tree: tree}
}

// Reparse edits a clone of prev and hands it to tree-sitter as the old tree,
// so unchanged subtrees are reused.
func (p *Plugin) Reparse(prev parser.SyntaxTree, source []byte, edits []parser.Edit, filePath string) (*parser.ParseResult, parser.SyntaxTree) {
	st, ok := prev.(*syntaxTree)
	if !ok || st == nil || st.tree == nil {
		return p.ParseTree(source, filePath)
	}

	old := st.tree.Clone()
	defer old.Close()
	for _, e := range edits {
		old.Edit(&sitter.InputEdit{
			StartByte:      uint(e.StartByte),
			OldEndByte:     uint(e.OldEndByte),
			NewEndByte:     uint(e.NewEndByte),
			StartPosition:  toPoint(e.StartPosition),
			OldEndPosition: toPoint(e.OldEndPosition),
			NewEndPosition: toPoint(e.NewEndPosition),
		})
	}

	sp := p.pool.Get()
	defer p.pool.Put(sp)
	tree := sp.Parse(source, old)
	if tree == nil {
		return nil, nil
	}
	return p.build(tree, source), &syntaxTree{tree: tree}
}

func (p *Plugin) failure(msg string) *parser.ParseResult {
	return &parser.ParseResult{
		Success:  false,
		Language: p.language,
		Errors:   []parser.ParseError{{Message: msg}},
	}
}

// build converts the tree and runs the extractor. The result depends only on
// the final tree and source, never on how the tree was produced.
func (p *Plugin) build(tree *sitter.Tree, source []byte) *parser.ParseResult {
	root := tree.RootNode()
	text := string(source)
	ast := &parser.AST{
		RootNode:   convertNode(root, text),
		SourceText: text,
	}

	var errs []parser.ParseError
	collectErrors(root, text, &errs)

	res := &parser.ParseResult{
		Success:  len(errs) == 0,
		Language: p.language,
		AST:      ast,
		Errors:   errs,
	}
	if p.extract != nil {
		res.Imports, res.Exports = p.extract(ast)
	}
	return res
}

type syntaxTree struct {
	tree *sitter.Tree
}

func (s *syntaxTree) Close() {
	if s.tree != nil {
		s.tree.Close()
		s.tree = nil
	}
}

// convertNode copies the named-node structure. Text fields slice the single
// source string.
func convertNode(n *sitter.Node, text string) *parser.ASTNode {
	node := &parser.ASTNode{
		Type:          n.Kind(),
		Text:          text[n.StartByte():n.EndByte()],
		StartPosition: fromPoint(n.StartPosition()),
		EndPosition:   fromPoint(n.EndPosition()),
	}
	count := n.NamedChildCount()
	if count > 0 {
		node.Children = make([]*parser.ASTNode, 0, count)
	}
	for i := uint(0); i < count; i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		node.Children = append(node.Children, convertNode(child, text))
	}
	return node
}

const maxErrorSnippet = 40

func collectErrors(n *sitter.Node, text string, out *[]parser.ParseError) {
	switch {
	case n.IsMissing():
		*out = append(*out, parser.ParseError{
			Message:  "missing " + n.Kind(),
			Position: fromPoint(n.StartPosition()),
		})
		return
	case n.IsError():
		snippet := text[n.StartByte():n.EndByte()]
		if len(snippet) > maxErrorSnippet {
			snippet = snippet[:maxErrorSnippet] + "..."
		}
		*out = append(*out, parser.ParseError{
			Message:  fmt.Sprintf("syntax error near %q", snippet),
			Position: fromPoint(n.StartPosition()),
		})
		return
	case !n.HasError():
		return
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if child := n.Child(i); child != nil {
			collectErrors(child, text, out)
		}
	}
}

func fromPoint(p sitter.Point) parser.Position {
	return parser.Position{Row: int(p.Row), Column: int(p.Column)}
}

func toPoint(p parser.Position) sitter.Point {
	return sitter.Point{Row: uint(p.Row), Column: uint(p.Column)}
}
