package resolver

import (
	"path/filepath"
	"strings"
)

// resolveJava maps a fully-qualified import to <...>/<pkg path>/<Type>.java
// anywhere in the tree. Wildcards yield every type of the package; static
// member imports fall back to the enclosing type.
func (r *Resolver) resolveJava(source string) []string {
	if pkg, ok := strings.CutSuffix(source, ".*"); ok {
		return r.javaPackage(pkg)
	}
	parts := strings.Split(source, ".")
	for n := len(parts); n >= 2; n-- {
		if found := r.javaType(parts[:n]); len(found) > 0 {
			return found
		}
	}
	return nil
}

func (r *Resolver) javaType(parts []string) []string {
	name := parts[len(parts)-1] + ".java"
	suffix := string(filepath.Separator) + filepath.Join(parts...) + ".java"
	var out []string
	for _, candidate := range r.byName[name] {
		if strings.HasSuffix(candidate, suffix) {
			out = append(out, candidate)
		}
	}
	return out
}

func (r *Resolver) javaPackage(pkg string) []string {
	dirSuffix := string(filepath.Separator) + filepath.Join(strings.Split(pkg, ".")...)
	var out []string
	for name, paths := range r.byName {
		if !strings.HasSuffix(name, ".java") {
			continue
		}
		for _, p := range paths {
			if strings.HasSuffix(filepath.Dir(p), dirSuffix) {
				out = append(out, p)
			}
		}
	}
	return out
}
