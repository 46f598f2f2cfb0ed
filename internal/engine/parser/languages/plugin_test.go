package languages

import (
	"driftscan/internal/engine/parser"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, opts parser.ManagerOptions) *parser.Manager {
	t.Helper()
	reg, err := NewRegistry()
	require.NoError(t, err)
	m := parser.NewManager(reg, opts)
	t.Cleanup(m.Close)
	return m
}

// fullParse parses source with a manager that has never seen the file.
func fullParse(t *testing.T, path, source string) *parser.ParseResult {
	t.Helper()
	res, err := newManager(t, parser.DefaultManagerOptions()).Parse(path, []byte(source))
	require.NoError(t, err)
	return res
}

func TestIncremental_AppendStatement(t *testing.T) {
	m := newManager(t, parser.DefaultManagerOptions())

	_, err := m.Parse("/src/a.ts", []byte("const x = 1;"))
	require.NoError(t, err)

	res, err := m.ParseWithChanges("/src/a.ts", []byte("const x = 1;\nconst y = 2;"), []parser.TextChange{{
		StartPosition:  parser.Position{Row: 0, Column: 12},
		OldEndPosition: parser.Position{Row: 0, Column: 12},
		NewEndPosition: parser.Position{Row: 1, Column: 12},
		NewText:        "\nconst y = 2;",
	}})
	require.NoError(t, err)

	st := m.Stats()
	assert.Equal(t, int64(1), st.IncrementalParses)
	assert.Equal(t, int64(1), st.FullParses)

	require.True(t, res.Success)
	root := res.AST.RootNode
	require.Len(t, root.Children, 2)
	assert.Equal(t, "lexical_declaration", root.Children[0].Type)
	assert.Equal(t, "const y = 2;", root.Children[1].Text)
	assert.Equal(t, parser.Position{Row: 1, Column: 0}, root.Children[1].StartPosition)

	assert.True(t, parser.Equal(res, fullParse(t, "/src/a.ts", "const x = 1;\nconst y = 2;")))
}

func TestIncremental_EquivalenceAcrossEditChains(t *testing.T) {
	chains := map[string][]string{
		"/src/app.js": {
			"import a from './a';\nconst x = 1;\n",
			"import a from './a';\nimport b from './b';\nconst x = 1;\n",
			"import a from './a';\nimport b from './b';\nconst x = a(b);\n",
			"import b from './b';\nconst x = b();\nexport default x;\n",
		},
		"/src/main.go": {
			"package main\n\nfunc main() {}\n",
			"package main\n\nimport \"fmt\"\n\nfunc main() {}\n",
			"package main\n\nimport \"fmt\"\n\nfunc main() { fmt.Println(1) }\n",
			"package main\n\nimport \"fmt\"\n\nfunc Run() int { return 2 }\n\nfunc main() { fmt.Println(Run()) }\n",
		},
		"/src/mod.py": {
			"import os\n\ndef f():\n    return 1\n",
			"import os\nimport sys\n\ndef f():\n    return 1\n",
			"import os\nimport sys\n\ndef f():\n    return sys.argv\n\nclass K:\n    pass\n",
		},
	}
	thresholds := []int{1, 16, 64, parser.DefaultIncrementalThreshold}

	for path, versions := range chains {
		for _, threshold := range thresholds {
			t.Run(fmt.Sprintf("%s/threshold=%d", path, threshold), func(t *testing.T) {
				opts := parser.DefaultManagerOptions()
				opts.IncrementalThreshold = threshold
				m := newManager(t, opts)

				for i, v := range versions {
					res, err := m.Parse(path, []byte(v))
					require.NoError(t, err)
					require.True(t, parser.Equal(res, fullParse(t, path, v)), "version %d differs from a full parse", i)
				}
				st := m.Stats()
				assert.Equal(t, int64(len(versions)), st.FullParses+st.IncrementalParses)
				if threshold == parser.DefaultIncrementalThreshold {
					assert.Equal(t, int64(len(versions)-1), st.IncrementalParses)
				}
			})
		}
	}
}

func TestIncremental_ThroughSyntaxError(t *testing.T) {
	opts := parser.DefaultManagerOptions()
	opts.VerifyIncremental = true
	m := newManager(t, opts)

	for _, v := range []string{"const x = 1;", "const x = ;", "const x = 2;"} {
		res, err := m.Parse("/src/e.js", []byte(v))
		require.NoError(t, err)
		assert.True(t, parser.Equal(res, fullParse(t, "/src/e.js", v)), "source %q", v)
	}
}

func TestIncremental_RandomEditsMatchFullParse(t *testing.T) {
	base := "import { a } from './a';\n\nexport function f(x) {\n  return `v${x}` + a;\n}\n\nconst y = [1, 2, 3];\n"
	fragments := []string{"(", ")", "{", "}", "`", "'", ";", "\n", " ", "=", "x", "import ", "export ", "function ", ","}
	rng := rand.New(rand.NewPCG(7, 11))

	trials := 200
	if testing.Short() {
		trials = 20
	}
	for trial := 0; trial < trials; trial++ {
		m := newManager(t, parser.DefaultManagerOptions())
		source := base
		_, err := m.Parse("/src/r.js", []byte(source))
		require.NoError(t, err)

		for step := 0; step < 6; step++ {
			pos := rng.IntN(len(source) + 1)
			if rng.IntN(2) == 0 || len(source) == 0 {
				source = source[:pos] + fragments[rng.IntN(len(fragments))] + source[pos:]
			} else {
				end := min(len(source), pos+1+rng.IntN(4))
				if pos == len(source) {
					pos = end - 1
				}
				source = source[:pos] + source[end:]
			}

			res, err := m.Parse("/src/r.js", []byte(source))
			require.NoError(t, err)
			if !parser.Equal(res, fullParse(t, "/src/r.js", source)) {
				t.Fatalf("trial %d step %d: result differs from a full parse of %q", trial, step, source)
			}
		}
	}
}

func TestParse_SyntaxErrorsReported(t *testing.T) {
	res := fullParse(t, "/src/bad.js", "const = ;\nfunction ok() {}\n")

	assert.False(t, res.Success)
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, "javascript", res.Language)
	require.NotNil(t, res.AST, "a failed parse still carries the partial tree")
	assert.Equal(t, "program", res.AST.RootNode.Type)
}

func TestPlugin_Query(t *testing.T) {
	p, err := New("typescript")
	require.NoError(t, err)

	res := p.Parse([]byte("export function f() {}\nexport class C {}\nconst z = 1;\n"), "/a.ts")
	require.True(t, res.Success)

	decls, err := p.Query(res.AST, "export_statement/*_declaration")
	require.NoError(t, err)
	require.Len(t, decls, 2)
	assert.Equal(t, "function_declaration", decls[0].Type)
	assert.Equal(t, "class_declaration", decls[1].Type)

	assert.True(t, p.CanHandle(".TS"))
	assert.True(t, p.CanHandle("mts"))
	assert.False(t, p.CanHandle(".tsx"))
}

func TestRegister_Subset(t *testing.T) {
	reg, err := NewRegistry("go", "python")
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "python"}, reg.Languages())
	assert.False(t, reg.Supports("/a.ts"))

	_, err = NewRegistry("cobol")
	require.Error(t, err)
}

func TestParserPool_Leases(t *testing.T) {
	def, ok := Lookup("go")
	require.True(t, ok)
	pool := NewParserPool(def.Grammar())

	sp := pool.Get()
	assert.Equal(t, 1, pool.Leased())
	tree := sp.Parse([]byte("package main\n"), nil)
	require.NotNil(t, tree)
	assert.False(t, tree.RootNode().HasError())
	tree.Close()
	pool.Put(sp)
	pool.Put(nil)
	assert.Equal(t, 0, pool.Leased())
}
