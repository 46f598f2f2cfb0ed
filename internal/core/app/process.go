package app

import (
	"context"
	"driftscan/internal/core/errors"
	"driftscan/internal/engine/parser"
	"driftscan/internal/engine/resolver"
	"driftscan/internal/shared/observability"
	"driftscan/internal/shared/util"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// FileUpdate describes the effect of processing one changed file.
type FileUpdate struct {
	Path    string
	Success bool
	// Added is set when the file was not part of the graph before.
	Added          bool
	ExportsChanged bool
	// Invalidated counts cached parse results dropped for dependents.
	Invalidated int
}

func (a *App) newSourceFile(res *parser.ParseResult) *sourceFile {
	return &sourceFile{
		language:  res.Language,
		imports:   res.Imports,
		exports:   res.Exports,
		signature: exportSignature(res.Exports),
	}
}

// exportSignature identifies the export set regardless of declaration order
// and position.
func exportSignature(exports []parser.ExportInfo) string {
	parts := make([]string, 0, len(exports))
	for _, e := range exports {
		parts = append(parts, string(e.Kind)+" "+e.Name+" "+e.Source+" "+strings.Join(e.Specifiers, ","))
	}
	sort.Strings(parts)
	return strings.Join(parts, "\n")
}

// link resolves path's imports against the current file set and updates its
// graph node. Callers hold a.mu.
func (a *App) link(path string) {
	sf, ok := a.files[path]
	if !ok {
		return
	}
	imports := a.resolver.ResolveAll(path, sf.language, sf.imports)
	sf.unresolved = false
	for _, imp := range imports {
		if imp.ResolvedPath == "" {
			sf.unresolved = true
			break
		}
	}
	a.graph.AddModule(path, imports, sf.exports)
	for _, dep := range a.graph.Dependencies(path) {
		a.parsers.AddDependent(dep, path)
	}
}

// rebuildResolver refreshes the resolver after the file set changed.
// Callers hold a.mu.
func (a *App) rebuildResolver() {
	a.resolver = resolver.New(a.root, util.SortedStringKeys(a.files))
}

// relinkUnresolved re-resolves every file that had an import pointing
// nowhere, since a new file may now satisfy it. Callers hold a.mu.
func (a *App) relinkUnresolved(except string) {
	for _, path := range util.SortedStringKeys(a.files) {
		if path != except && a.files[path].unresolved {
			a.link(path)
		}
	}
}

// ProcessFile re-reads and re-parses path, incrementally when its previous
// version is known, and updates its graph node. A file that no longer exists
// is removed.
func (a *App) ProcessFile(ctx context.Context, path string) (*FileUpdate, error) {
	_, span := observability.Tracer.Start(ctx, "app.ProcessFile")
	defer span.End()

	path, err := a.normalize(path)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("file.path", path))

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			a.RemoveFile(path)
			return &FileUpdate{Path: path}, nil
		}
		span.RecordError(err)
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "read file"), errors.CtxPath, path)
	}
	if limit := a.cfg.Scan.MaxFileSize; limit > 0 && int64(len(content)) > limit {
		slog.Debug("skipping oversized file", "path", path, "size", len(content))
		return &FileUpdate{Path: path}, nil
	}

	res, err := a.parsers.Parse(path, content)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	prev, existed := a.files[path]
	next := a.newSourceFile(res)
	a.files[path] = next

	update := &FileUpdate{Path: path, Success: res.Success, Added: !existed}
	if !existed {
		a.rebuildResolver()
	}
	a.link(path)
	if !existed {
		a.relinkUnresolved(path)
	}

	if existed && prev.signature != next.signature {
		update.ExportsChanged = true
		if deps := a.graph.Dependents(path); len(deps) > 0 {
			update.Invalidated = a.parsers.InvalidateWithDependents(deps[0], deps[1:])
			slog.Debug("exports changed; invalidated dependents", "path", path, "dependents", len(deps), "entries", update.Invalidated)
		}
	}
	return update, nil
}

// RemoveFile drops path from the graph and invalidates the cached results of
// the files importing it. It reports whether path was known.
func (a *App) RemoveFile(path string) bool {
	path, err := a.normalize(path)
	if err != nil {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	removed := a.removeLocked(path)
	// A removed directory arrives as a single event for its path.
	for _, known := range util.SortedStringKeys(a.files) {
		if known != path && util.HasPathPrefix(known, path) {
			removed = a.removeLocked(known) || removed
		}
	}
	return removed
}

func (a *App) removeLocked(path string) bool {
	_, known := a.files[path]
	deps := a.graph.Dependents(path)
	a.graph.RemoveModule(path)
	a.parsers.InvalidateWithDependents(path, deps)
	if !known {
		return false
	}
	delete(a.files, path)
	a.rebuildResolver()
	for _, dep := range deps {
		a.link(dep)
	}
	return true
}

func (a *App) normalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "resolve path"), errors.CtxPath, path)
	}
	return filepath.Clean(abs), nil
}
