package resolver

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

type goModule struct {
	root string
	path string
}

// resolveGo maps an import path under the enclosing module to the files of
// the package directory.
func (r *Resolver) resolveGo(from, source string) []string {
	mod, ok := r.moduleFor(filepath.Dir(from))
	if !ok {
		return nil
	}
	var rel string
	switch {
	case source == mod.path:
		rel = ""
	case strings.HasPrefix(source, mod.path+"/"):
		rel = strings.TrimPrefix(source, mod.path+"/")
	default:
		return nil
	}
	dir := filepath.Join(mod.root, filepath.FromSlash(rel))
	pkg := r.goPackages[dir]
	if len(pkg) == 0 {
		return nil
	}
	return append([]string(nil), pkg...)
}

// moduleFor finds the go.mod governing dir, searching upwards but not past
// the scan root.
func (r *Resolver) moduleFor(dir string) (goModule, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var visited []string
	current := dir
	var found goModule
	ok := false
	for {
		if mod, cached := r.goModule[current]; cached {
			found, ok = mod, mod.path != ""
			break
		}
		visited = append(visited, current)
		if mod, err := readGoMod(current); err == nil {
			found, ok = mod, true
			break
		}
		parent := filepath.Dir(current)
		if parent == current || !r.withinRoot(parent) {
			break
		}
		current = parent
	}
	for _, v := range visited {
		r.goModule[v] = found
	}
	return found, ok
}

func readGoMod(dir string) (goModule, error) {
	path := filepath.Join(dir, "go.mod")
	data, err := os.ReadFile(path)
	if err != nil {
		return goModule{}, err
	}
	modPath := modfile.ModulePath(data)
	if modPath == "" {
		slog.Warn("go.mod declares no module path", "path", path)
		return goModule{}, os.ErrNotExist
	}
	return goModule{root: dir, path: modPath}, nil
}
