package parser

import (
	"bytes"
	"strings"
	"sync"
	"sync/atomic"
)

// linePlugin parses a toy line-oriented language: every line is a node,
// lines starting with "import " yield an import, and "!!" is a syntax error.
type linePlugin struct {
	lang string
	exts []string

	parses   atomic.Int32
	reparses atomic.Int32
	openTree atomic.Int32

	// diverge makes Reparse return a result that differs from a full parse.
	diverge bool

	mu        sync.Mutex
	lastEdits []Edit
}

func newLinePlugin(lang string, exts ...string) *linePlugin {
	return &linePlugin{lang: lang, exts: exts}
}

type lineTree struct {
	plugin *linePlugin
	source []byte
	closed bool
}

func (t *lineTree) Close() {
	if !t.closed {
		t.closed = true
		t.plugin.openTree.Add(-1)
	}
}

func (p *linePlugin) Language() string     { return p.lang }
func (p *linePlugin) Extensions() []string { return p.exts }
func (p *linePlugin) CanHandle(ext string) bool {
	for _, e := range p.exts {
		if e == ext {
			return true
		}
	}
	return false
}

func (p *linePlugin) Parse(source []byte, _ string) *ParseResult {
	p.parses.Add(1)
	return parseLines(p.lang, source)
}

func (p *linePlugin) Query(ast *AST, pattern string) ([]*ASTNode, error) {
	return Query(ast, pattern)
}

func (p *linePlugin) ParseTree(source []byte, _ string) (*ParseResult, SyntaxTree) {
	p.parses.Add(1)
	return parseLines(p.lang, source), p.newTree(source)
}

func (p *linePlugin) Reparse(prev SyntaxTree, source []byte, edits []Edit, _ string) (*ParseResult, SyntaxTree) {
	p.reparses.Add(1)
	p.mu.Lock()
	p.lastEdits = append([]Edit(nil), edits...)
	p.mu.Unlock()

	lt, ok := prev.(*lineTree)
	if !ok || lt.closed {
		return nil, nil
	}
	text := lt.source
	for _, e := range edits {
		next := append([]byte(nil), text[:e.StartByte]...)
		next = append(next, source[e.StartByte:e.NewEndByte]...)
		next = append(next, text[e.OldEndByte:]...)
		text = next
	}
	if !bytes.Equal(text, source) {
		return nil, nil
	}
	res := parseLines(p.lang, source)
	if p.diverge {
		res.AST.RootNode.Type = "diverged"
	}
	return res, p.newTree(source)
}

func (p *linePlugin) edits() []Edit {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastEdits
}

func (p *linePlugin) newTree(source []byte) *lineTree {
	p.openTree.Add(1)
	return &lineTree{plugin: p, source: bytes.Clone(source)}
}

func parseLines(lang string, source []byte) *ParseResult {
	text := string(source)
	root := &ASTNode{Type: "document", Text: text}
	res := &ParseResult{Success: true, Language: lang, AST: &AST{RootNode: root, SourceText: text}}

	lines := strings.Split(text, "\n")
	for row, line := range lines {
		node := &ASTNode{
			Type:          "line",
			Text:          line,
			StartPosition: Position{Row: row},
			EndPosition:   Position{Row: row, Column: len(line)},
		}
		if src, ok := strings.CutPrefix(line, "import "); ok {
			node.Type = "import"
			res.Imports = append(res.Imports, ImportInfo{Source: src, Kind: ImportModule, Line: row + 1, Column: 1})
		}
		if i := strings.Index(line, "!!"); i >= 0 {
			res.Success = false
			res.Errors = append(res.Errors, ParseError{Message: "unexpected !!", Position: Position{Row: row, Column: i}})
		}
		root.Children = append(root.Children, node)
	}
	root.EndPosition = Position{Row: len(lines) - 1, Column: len(lines[len(lines)-1])}
	return res
}

// plainPlugin hides the incremental methods of linePlugin.
type plainPlugin struct {
	inner *linePlugin
}

func (p plainPlugin) Language() string          { return p.inner.Language() }
func (p plainPlugin) Extensions() []string      { return p.inner.Extensions() }
func (p plainPlugin) CanHandle(ext string) bool { return p.inner.CanHandle(ext) }
func (p plainPlugin) Parse(source []byte, path string) *ParseResult {
	return p.inner.Parse(source, path)
}
func (p plainPlugin) Query(ast *AST, pattern string) ([]*ASTNode, error) {
	return p.inner.Query(ast, pattern)
}
