package walker

import "strings"

// extensionLanguages maps lower-cased extensions to the language name used in
// walk statistics. It mirrors the parser plugins but has no dependency on them.
var extensionLanguages = map[string]string{
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".ts":   "typescript",
	".mts":  "typescript",
	".cts":  "typescript",
	".tsx":  "tsx",
	".go":   "go",
	".py":   "python",
	".pyi":  "python",
	".java": "java",
	".rs":   "rust",
	".css":  "css",
	".scss": "scss",
	".html": "html",
	".htm":  "html",
	".json": "json",
	".md":   "markdown",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
}

// LanguageForExtension returns the language for ext, or "" when unknown.
func LanguageForExtension(ext string) string {
	return extensionLanguages[normalizeExtension(ext)]
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
