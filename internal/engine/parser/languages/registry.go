// # internal/engine/parser/languages/registry.go
package languages

import (
	"driftscan/internal/core/errors"
	"driftscan/internal/engine/parser"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Definition describes a built-in language plugin.
type Definition struct {
	Name       string
	Extensions []string
	Grammar    func() *sitter.Language
	Extract    Extractor
}

var definitions = map[string]Definition{
	"javascript": {
		Name:       "javascript",
		Extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		Grammar:    func() *sitter.Language { return sitter.NewLanguage(tree_sitter_javascript.Language()) },
		Extract:    ecmaExtractor,
	},
	"typescript": {
		Name:       "typescript",
		Extensions: []string{".ts", ".mts", ".cts"},
		Grammar:    func() *sitter.Language { return sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()) },
		Extract:    ecmaExtractor,
	},
	"tsx": {
		Name:       "tsx",
		Extensions: []string{".tsx"},
		Grammar:    func() *sitter.Language { return sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()) },
		Extract:    ecmaExtractor,
	},
	"go": {
		Name:       "go",
		Extensions: []string{".go"},
		Grammar:    func() *sitter.Language { return sitter.NewLanguage(tree_sitter_go.Language()) },
		Extract:    extractGo,
	},
	"python": {
		Name:       "python",
		Extensions: []string{".py"},
		Grammar:    func() *sitter.Language { return sitter.NewLanguage(tree_sitter_python.Language()) },
		Extract:    extractPython,
	},
	"java": {
		Name:       "java",
		Extensions: []string{".java"},
		Grammar:    func() *sitter.Language { return sitter.NewLanguage(tree_sitter_java.Language()) },
		Extract:    extractJava,
	},
	"rust": {
		Name:       "rust",
		Extensions: []string{".rs"},
		Grammar:    func() *sitter.Language { return sitter.NewLanguage(tree_sitter_rust.Language()) },
		Extract:    extractRust,
	},
	"css": {
		Name:       "css",
		Extensions: []string{".css"},
		Grammar:    func() *sitter.Language { return sitter.NewLanguage(tree_sitter_css.Language()) },
		Extract:    extractCSS,
	},
}

// Names returns the built-in language names, sorted.
func Names() []string {
	out := make([]string, 0, len(definitions))
	for name := range definitions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func Lookup(name string) (Definition, bool) {
	def, ok := definitions[strings.ToLower(strings.TrimSpace(name))]
	return def, ok
}

// New builds the plugin for a built-in language.
func New(name string) (*Plugin, error) {
	def, ok := Lookup(name)
	if !ok {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "unknown language"), errors.CtxLanguage, name)
	}
	return NewPlugin(def.Name, def.Extensions, def.Grammar(), def.Extract), nil
}

// Register adds the named built-in plugins to reg. An empty list registers
// every built-in language.
func Register(reg *parser.Registry, enabled ...string) error {
	if len(enabled) == 0 {
		enabled = Names()
	}
	for _, name := range enabled {
		p, err := New(name)
		if err != nil {
			return err
		}
		if err := reg.Register(p); err != nil {
			return err
		}
	}
	return nil
}

func NewRegistry(enabled ...string) (*parser.Registry, error) {
	reg := parser.NewRegistry()
	if err := Register(reg, enabled...); err != nil {
		return nil, err
	}
	return reg, nil
}
