package parser

// Plugin parses one language. Implementations must be safe for concurrent use.
type Plugin interface {
	Language() string
	Extensions() []string
	CanHandle(ext string) bool
	// Parse never fails outright: syntax problems are reported through
	// ParseResult.Errors with Success=false.
	Parse(source []byte, filePath string) *ParseResult
	Query(ast *AST, pattern string) ([]*ASTNode, error)
}

// SyntaxTree is a plugin-native tree kept between versions of one file so
// that it can be reparsed incrementally. The holder must Close it.
type SyntaxTree interface {
	Close()
}

// IncrementalPlugin is implemented by plugins able to reuse a previous tree.
type IncrementalPlugin interface {
	Plugin
	ParseTree(source []byte, filePath string) (*ParseResult, SyntaxTree)
	// Reparse parses source reusing prev, which describes the text before
	// edits were applied. prev is not modified and remains owned by the
	// caller. The result must equal a from-scratch parse of source.
	Reparse(prev SyntaxTree, source []byte, edits []Edit, filePath string) (*ParseResult, SyntaxTree)
}
