package resolver

import (
	"path/filepath"
	"strings"
)

var ecmaExtensions = []string{".ts", ".tsx", ".d.ts", ".js", ".jsx", ".mjs", ".cjs", ".mts", ".cts"}

// resolveECMA handles relative specifiers only; bare specifiers name
// packages outside the tree.
func (r *Resolver) resolveECMA(from, source string) []string {
	if !isRelative(source) {
		return nil
	}
	base := filepath.Join(filepath.Dir(from), filepath.FromSlash(source))

	candidates := []string{base}
	// ESM sources importing "./x.js" compiled from "./x.ts".
	switch ext := filepath.Ext(base); ext {
	case ".js", ".jsx", ".mjs", ".cjs":
		stem := strings.TrimSuffix(base, ext)
		candidates = append(candidates, stem+".ts", stem+".tsx", stem+".mts", stem+".cts")
	}
	for _, ext := range ecmaExtensions {
		candidates = append(candidates, base+ext)
	}
	for _, ext := range ecmaExtensions {
		candidates = append(candidates, filepath.Join(base, "index"+ext))
	}
	return r.firstExisting(candidates...)
}

// resolveCSS treats any non-URL specifier as relative to the stylesheet.
func (r *Resolver) resolveCSS(from, source string) []string {
	if strings.Contains(source, "://") || strings.HasPrefix(source, "//") {
		return nil
	}
	var base string
	if strings.HasPrefix(source, "/") {
		base = filepath.Join(r.root, filepath.FromSlash(source))
	} else {
		base = filepath.Join(filepath.Dir(from), filepath.FromSlash(source))
	}
	return r.firstExisting(base, base+".css")
}

func isRelative(source string) bool {
	return source == "." || source == ".." ||
		strings.HasPrefix(source, "./") || strings.HasPrefix(source, "../")
}
