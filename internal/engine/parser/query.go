package parser

import (
	"driftscan/internal/core/errors"
	"strings"

	"github.com/gobwas/glob"
)

type querySegment struct {
	any  bool // "**": zero or more levels
	glob glob.Glob
}

// CompiledQuery is a parsed node-type path pattern.
type CompiledQuery struct {
	pattern  string
	segments []querySegment
}

// CompileQuery parses a "/"-separated path of node-type globs. A pattern
// starting with "/" is anchored at the root node; any other pattern may
// begin matching at any depth. A "**" segment spans zero or more levels.
func CompileQuery(pattern string) (*CompiledQuery, error) {
	trimmed := strings.TrimSpace(pattern)
	anchored := strings.HasPrefix(trimmed, "/")
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return nil, errors.New(errors.CodeValidationError, "empty query pattern")
	}

	q := &CompiledQuery{pattern: pattern}
	if !anchored {
		q.segments = append(q.segments, querySegment{any: true})
	}
	for _, part := range strings.Split(trimmed, "/") {
		if part == "" {
			return nil, errors.AddContext(errors.New(errors.CodeValidationError, "empty segment in query pattern"), "pattern", pattern)
		}
		if part == "**" {
			if n := len(q.segments); n > 0 && q.segments[n-1].any {
				continue
			}
			q.segments = append(q.segments, querySegment{any: true})
			continue
		}
		g, err := glob.Compile(part)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "invalid query segment"), "pattern", pattern)
		}
		q.segments = append(q.segments, querySegment{glob: g})
	}
	return q, nil
}

func (q *CompiledQuery) String() string { return q.pattern }

// Find returns the matching nodes of ast in document order.
func (q *CompiledQuery) Find(ast *AST) []*ASTNode {
	if ast == nil || ast.RootNode == nil {
		return nil
	}
	var out []*ASTNode
	q.visit(ast.RootNode, []int{0}, &out)
	return out
}

func (q *CompiledQuery) visit(n *ASTNode, states []int, out *[]*ASTNode) {
	last := len(q.segments) - 1
	matched := false
	var next []int
	seen := make(map[int]bool, len(states)+1)
	push := func(i int) {
		if !seen[i] {
			seen[i] = true
			next = append(next, i)
		}
	}

	for _, i := range q.closure(states) {
		seg := q.segments[i]
		if seg.any {
			if i == last {
				matched = true
			}
			push(i)
			continue
		}
		if seg.glob.Match(n.Type) {
			if i == last {
				matched = true
			} else {
				push(i + 1)
			}
		}
	}

	if matched {
		*out = append(*out, n)
	}
	if len(next) == 0 {
		return
	}
	for _, child := range n.Children {
		q.visit(child, next, out)
	}
}

// closure adds the state after every "**" segment, since "**" may match
// zero levels.
func (q *CompiledQuery) closure(states []int) []int {
	out := make([]int, 0, len(states)+1)
	seen := make(map[int]bool, len(states)+1)
	for _, i := range states {
		for i < len(q.segments) && !seen[i] {
			seen[i] = true
			out = append(out, i)
			if !q.segments[i].any {
				break
			}
			i++
		}
	}
	return out
}

// Query compiles pattern and runs it against ast.
func Query(ast *AST, pattern string) ([]*ASTNode, error) {
	q, err := CompileQuery(pattern)
	if err != nil {
		return nil, err
	}
	return q.Find(ast), nil
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's children.
func Walk(n *ASTNode, fn func(*ASTNode) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// FindEnclosing returns the deepest node whose range contains pos, or nil
// when pos lies outside the root.
func FindEnclosing(ast *AST, pos Position) *ASTNode {
	if ast == nil || ast.RootNode == nil || !ast.RootNode.Range().Contains(pos) {
		return nil
	}
	n := ast.RootNode
	for {
		var inner *ASTNode
		for _, c := range n.Children {
			if c.Range().Contains(pos) {
				inner = c
				break
			}
		}
		if inner == nil {
			return n
		}
		n = inner
	}
}
