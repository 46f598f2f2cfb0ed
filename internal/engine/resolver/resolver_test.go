package resolver

import (
	"driftscan/internal/engine/parser"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// tree creates files under a temp root and returns the root and the
// absolute file list.
func tree(t *testing.T, files map[string]string) (string, []string) {
	t.Helper()
	root := t.TempDir()
	var paths []string
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return root, paths
}

func rel(t *testing.T, root string, paths []string) []string {
	t.Helper()
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		r, err := filepath.Rel(root, p)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = filepath.ToSlash(r)
	}
	return out
}

func TestResolve_ECMA(t *testing.T) {
	root, files := tree(t, map[string]string{
		"src/app.ts":               "",
		"src/util.ts":              "",
		"src/components/index.tsx": "",
		"src/legacy.js":            "",
		"src/esm.ts":               "",
		"lib/helpers.mjs":          "",
	})
	r := New(root, files)
	from := filepath.Join(root, "src", "app.ts")

	tests := []struct {
		source string
		want   []string
	}{
		{"./util", []string{"src/util.ts"}},
		{"./util.ts", []string{"src/util.ts"}},
		{"./components", []string{"src/components/index.tsx"}},
		{"./legacy", []string{"src/legacy.js"}},
		{"./esm.js", []string{"src/esm.ts"}},
		{"../lib/helpers", []string{"lib/helpers.mjs"}},
		{"react", nil},
		{"./missing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got := r.Resolve(from, "typescript", parser.ImportInfo{Source: tt.source})
			if g := rel(t, root, got); !reflect.DeepEqual(g, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, g)
			}
		})
	}
}

func TestResolve_CSS(t *testing.T) {
	root, files := tree(t, map[string]string{
		"styles/site.css":  "",
		"styles/base.css":  "",
		"styles/theme.css": "",
	})
	r := New(root, files)
	from := filepath.Join(root, "styles", "site.css")

	if got := rel(t, root, r.Resolve(from, "css", parser.ImportInfo{Source: "base.css"})); !reflect.DeepEqual(got, []string{"styles/base.css"}) {
		t.Fatalf("unexpected %v", got)
	}
	if got := rel(t, root, r.Resolve(from, "css", parser.ImportInfo{Source: "/styles/theme"})); !reflect.DeepEqual(got, []string{"styles/theme.css"}) {
		t.Fatalf("unexpected %v", got)
	}
	if got := r.Resolve(from, "css", parser.ImportInfo{Source: "https://cdn.example.com/x.css"}); got != nil {
		t.Fatalf("expected URL to stay unresolved, got %v", got)
	}
}

func TestResolve_Go(t *testing.T) {
	root, files := tree(t, map[string]string{
		"go.mod":                   "module example.com/demo\n\ngo 1.22\n",
		"main.go":                  "package main",
		"internal/store/a.go":      "package store",
		"internal/store/b.go":      "package store",
		"internal/store/a_test.go": "package store",
		"internal/empty/README":    "",
	})
	r := New(root, files)
	from := filepath.Join(root, "main.go")

	got := rel(t, root, r.Resolve(from, "go", parser.ImportInfo{Source: "example.com/demo/internal/store"}))
	if want := []string{"internal/store/a.go", "internal/store/b.go"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for _, src := range []string{"fmt", "example.com/other/pkg", "example.com/demo/internal/empty"} {
		if got := r.Resolve(from, "go", parser.ImportInfo{Source: src}); got != nil {
			t.Fatalf("%s: expected unresolved, got %v", src, got)
		}
	}

	all := r.ResolveAll(from, "go", []parser.ImportInfo{
		{Source: "fmt", Kind: parser.ImportModule},
		{Source: "example.com/demo/internal/store", Kind: parser.ImportModule, Line: 3},
	})
	if len(all) != 3 {
		t.Fatalf("expected the package import to fan out, got %+v", all)
	}
	if all[0].ResolvedPath != "" || all[1].Line != 3 || all[2].ResolvedPath != filepath.Join(root, "internal", "store", "b.go") {
		t.Fatalf("unexpected resolved imports %+v", all)
	}
}

func TestResolve_GoWithoutModule(t *testing.T) {
	root, files := tree(t, map[string]string{"main.go": "package main"})
	r := New(root, files)
	if got := r.Resolve(filepath.Join(root, "main.go"), "go", parser.ImportInfo{Source: "example.com/x"}); got != nil {
		t.Fatalf("expected unresolved, got %v", got)
	}
}

func TestResolve_Python(t *testing.T) {
	root, files := tree(t, map[string]string{
		"pkg/__init__.py":     "",
		"pkg/mod.py":          "",
		"pkg/sibling.py":      "",
		"pkg/sub/__init__.py": "",
		"pkg/sub/deep.py":     "",
		"pkg/sub/leaf.py":     "",
		"tools/cli.py":        "",
	})
	r := New(root, files)
	deep := filepath.Join(root, "pkg", "sub", "deep.py")

	tests := []struct {
		name       string
		from       string
		source     string
		specifiers []string
		want       []string
	}{
		{"relative sibling", deep, ".", []string{"leaf"}, []string{"pkg/sub/leaf.py"}},
		{"relative parent module", deep, "..mod", []string{"thing"}, []string{"pkg/mod.py"}},
		{"relative parent package", deep, "..", []string{"sibling", "mod"}, []string{"pkg/mod.py", "pkg/sibling.py"}},
		{"absolute package", filepath.Join(root, "tools", "cli.py"), "pkg.sub", nil, []string{"pkg/sub/__init__.py"}},
		{"absolute module", filepath.Join(root, "tools", "cli.py"), "pkg.sub.leaf", nil, []string{"pkg/sub/leaf.py"}},
		{"stdlib", deep, "os", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rel(t, root, r.Resolve(tt.from, "python", parser.ImportInfo{Source: tt.source, Specifiers: tt.specifiers}))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestResolve_Java(t *testing.T) {
	root, files := tree(t, map[string]string{
		"src/main/java/com/acme/app/Service.java":  "",
		"src/main/java/com/acme/util/Strings.java": "",
		"src/main/java/com/acme/util/Lists.java":   "",
	})
	r := New(root, files)
	from := filepath.Join(root, "src/main/java/com/acme/app/Service.java")

	tests := []struct {
		source string
		want   []string
	}{
		{"com.acme.util.Strings", []string{"src/main/java/com/acme/util/Strings.java"}},
		{"com.acme.util.*", []string{"src/main/java/com/acme/util/Lists.java", "src/main/java/com/acme/util/Strings.java"}},
		{"com.acme.util.Strings.join", []string{"src/main/java/com/acme/util/Strings.java"}},
		{"java.util.List", nil},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got := rel(t, root, r.Resolve(from, "java", parser.ImportInfo{Source: tt.source}))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestResolve_Rust(t *testing.T) {
	root, files := tree(t, map[string]string{
		"src/lib.rs":         "",
		"src/parser.rs":      "",
		"src/lexer/mod.rs":   "",
		"src/lexer/token.rs": "",
		"src/model/mod.rs":   "",
		"src/model/thing.rs": "",
	})
	r := New(root, files)
	lib := filepath.Join(root, "src", "lib.rs")
	lexer := filepath.Join(root, "src", "lexer", "mod.rs")

	tests := []struct {
		name string
		from string
		imp  parser.ImportInfo
		want []string
	}{
		{"mod file", lib, parser.ImportInfo{Source: "parser", Kind: parser.ImportModule}, []string{"src/parser.rs"}},
		{"mod dir", lib, parser.ImportInfo{Source: "lexer", Kind: parser.ImportModule}, []string{"src/lexer/mod.rs"}},
		{"nested mod", lexer, parser.ImportInfo{Source: "token", Kind: parser.ImportModule}, []string{"src/lexer/token.rs"}},
		{"crate item", lexer, parser.ImportInfo{Source: "crate::model::thing::Thing", Kind: parser.ImportNamed}, []string{"src/model/thing.rs"}},
		{"crate list", lib, parser.ImportInfo{Source: "crate::model::{Thing, Other}", Kind: parser.ImportNamed}, []string{"src/model/mod.rs"}},
		{"super", filepath.Join(root, "src", "lexer", "token.rs"), parser.ImportInfo{Source: "super::token", Kind: parser.ImportNamed}, []string{"src/lexer/token.rs"}},
		{"external", lib, parser.ImportInfo{Source: "std::collections::HashMap", Kind: parser.ImportNamed}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rel(t, root, r.Resolve(tt.from, "rust", tt.imp))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
