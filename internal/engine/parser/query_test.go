package parser

import (
	"driftscan/internal/core/errors"
	"testing"
)

func node(typ, text string, row int, children ...*ASTNode) *ASTNode {
	end := Position{Row: row, Column: len(text)}
	if n := len(children); n > 0 {
		end = children[n-1].EndPosition
	}
	return &ASTNode{
		Type:          typ,
		Text:          text,
		StartPosition: Position{Row: row},
		EndPosition:   end,
		Children:      children,
	}
}

func sampleAST() *AST {
	root := node("program", "", 0,
		node("import_statement", `import a from "a"`, 0,
			node("import_clause", "a", 0, node("identifier", "a", 0)),
			node("string", `"a"`, 0),
		),
		node("export_statement", "export function f() {}", 1,
			node("function_declaration", "function f() {}", 1, node("identifier", "f", 1)),
		),
		node("export_statement", "export class C {}", 2,
			node("class_declaration", "class C {}", 2, node("identifier", "C", 2)),
		),
	)
	return &AST{RootNode: root}
}

func types(nodes []*ASTNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Type + ":" + n.Text
	}
	return out
}

func TestQuery(t *testing.T) {
	ast := sampleAST()
	tests := []struct {
		pattern string
		want    []string
	}{
		{"import_statement", []string{`import_statement:import a from "a"`}},
		{"export_statement/*_declaration", []string{
			"function_declaration:function f() {}",
			"class_declaration:class C {}",
		}},
		{"**/identifier", []string{"identifier:a", "identifier:f", "identifier:C"}},
		{"identifier", []string{"identifier:a", "identifier:f", "identifier:C"}},
		{"/program/export_statement/**/identifier", []string{"identifier:f", "identifier:C"}},
		{"/export_statement", nil},
		{"import_statement/string", []string{`string:"a"`}},
		{"{class,function}_declaration", []string{
			"function_declaration:function f() {}",
			"class_declaration:class C {}",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := Query(ast, tt.pattern)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			gotTypes := types(got)
			if len(gotTypes) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, gotTypes)
			}
			for i := range gotTypes {
				if gotTypes[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, gotTypes)
				}
			}
		})
	}
}

func TestQuery_InvalidPatterns(t *testing.T) {
	for _, pattern := range []string{"", "/", "a//b"} {
		if _, err := Query(sampleAST(), pattern); !errors.IsCode(err, errors.CodeValidationError) {
			t.Errorf("pattern %q: expected validation error, got %v", pattern, err)
		}
	}
}

func TestFindEnclosing(t *testing.T) {
	ast := sampleAST()

	n := FindEnclosing(ast, Position{Row: 1, Column: 0})
	if n == nil || n.Type != "identifier" || n.Text != "f" {
		t.Fatalf("expected identifier f, got %+v", n)
	}
	if FindEnclosing(ast, Position{Row: 9, Column: 0}) != nil {
		t.Fatal("expected nil outside the root range")
	}
	if FindEnclosing(nil, Position{}) != nil {
		t.Fatal("expected nil for a nil AST")
	}
}

func TestWalk_SkipChildren(t *testing.T) {
	var seen []string
	Walk(sampleAST().RootNode, func(n *ASTNode) bool {
		seen = append(seen, n.Type)
		return n.Type != "export_statement"
	})
	want := []string{"program", "import_statement", "import_clause", "identifier", "string", "export_statement", "export_statement"}
	if len(seen) != len(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, seen)
		}
	}
}

func TestEqual(t *testing.T) {
	a := parseLines("l", []byte("import x\ny"))
	b := parseLines("l", []byte("import x\ny"))
	if !Equal(a, b) {
		t.Fatal("expected identical parses to be equal")
	}
	b.AST.RootNode.Children[1].EndPosition.Column++
	if Equal(a, b) {
		t.Fatal("expected a position difference to be detected")
	}
	if Equal(a, nil) || !Equal(nil, nil) {
		t.Fatal("unexpected nil handling")
	}
}
