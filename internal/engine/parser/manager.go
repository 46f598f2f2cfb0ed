// # internal/engine/parser/manager.go
package parser

import (
	"bytes"
	"driftscan/internal/core/errors"
	"driftscan/internal/engine/cache"
	"driftscan/internal/shared/observability"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultIncrementalThreshold = 4096

	modeCached      = "cached"
	modeFull        = "full"
	modeIncremental = "incremental"
	modeFallback    = "fallback"
)

type ManagerOptions struct {
	Incremental bool
	// IncrementalThreshold is the exclusive upper bound, in bytes, of the
	// aggregate edited region for which an incremental reparse is attempted.
	IncrementalThreshold int
	CacheSize            int
	CacheTTL             time.Duration
	// VerifyIncremental re-parses from scratch after every incremental parse
	// and keeps the full result when the two differ.
	VerifyIncremental bool
}

func DefaultManagerOptions() ManagerOptions {
	return ManagerOptions{
		Incremental:          true,
		IncrementalThreshold: DefaultIncrementalThreshold,
		CacheSize:            cache.DefaultMaxSize,
	}
}

type ManagerStats struct {
	TrackedFiles         int
	FullParses           int64
	IncrementalParses    int64
	IncrementalFallbacks int64
	Cache                cache.Stats
}

// fileState is the last parsed version of one path. It owns tree.
type fileState struct {
	mu       sync.Mutex
	key      string
	source   []byte
	tree     SyntaxTree
	language string
	// failed is set when the last result carried syntax errors.
	failed  bool
	dropped bool
}

func (s *fileState) closeTree() {
	if s.tree != nil {
		s.tree.Close()
		s.tree = nil
	}
}

// Manager dispatches parses to plugins, caches results by content hash and
// reparses incrementally when a file changed only in a small region.
//
// Results returned by the manager are shared through the cache and must be
// treated as read-only.
type Manager struct {
	registry *Registry
	opts     ManagerOptions
	cache    *cache.Manager[*ParseResult]

	mu     sync.Mutex
	files  map[string]*fileState
	closed bool

	fullParses        atomic.Int64
	incrementalParses atomic.Int64
	fallbacks         atomic.Int64
}

func NewManager(registry *Registry, opts ManagerOptions) *Manager {
	if opts.IncrementalThreshold < 0 {
		opts.IncrementalThreshold = 0
	}
	return &Manager{
		registry: registry,
		opts:     opts,
		cache: cache.New(cache.Options[*ParseResult]{
			Name:    "parse",
			MaxSize: opts.CacheSize,
			TTL:     opts.CacheTTL,
		}),
		files: make(map[string]*fileState),
	}
}

func (m *Manager) Registry() *Registry { return m.registry }

// Parse returns the parse result for source. When a previous version of
// path is known the edit is estimated by diffing the two sources.
func (m *Manager) Parse(path string, source []byte) (*ParseResult, error) {
	return m.parse(path, source, nil)
}

// ParseWithChanges parses source, the text obtained by applying changes to
// the previously parsed version of path. Changes that do not reproduce
// source are ignored in favour of a diff.
func (m *Manager) ParseWithChanges(path string, source []byte, changes []TextChange) (*ParseResult, error) {
	return m.parse(path, source, changes)
}

func (m *Manager) parse(path string, source []byte, changes []TextChange) (*ParseResult, error) {
	plugin, err := m.registry.PluginFor(path)
	if err != nil {
		return nil, err
	}
	lang := plugin.Language()

	st, err := m.lockState(path)
	if err != nil {
		return nil, err
	}
	defer st.mu.Unlock()

	key := cacheKey(lang, source)
	if res, ok := m.cache.Get(key); ok {
		if st.key != key || !bytes.Equal(st.source, source) {
			st.closeTree()
			st.source = bytes.Clone(source)
		}
		st.key = key
		st.language = lang
		st.failed = !res.Success
		observability.ParsesTotal.WithLabelValues(modeCached).Inc()
		return res, nil
	}

	start := time.Now()
	res, tree, mode := m.produce(plugin, st, path, source, changes)
	observability.ParsingDuration.WithLabelValues(lang, mode).Observe(time.Since(start).Seconds())
	observability.ParsesTotal.WithLabelValues(mode).Inc()

	if !res.Success {
		slog.Debug("parse completed with errors", "path", path, "language", lang, "errors", len(res.Errors))
	}

	m.cache.Set(key, res)
	if st.tree != tree {
		st.closeTree()
	}
	st.tree = tree
	st.key = key
	st.source = bytes.Clone(source)
	st.language = lang
	st.failed = !res.Success
	return res, nil
}

// produce runs the plugin. It returns the result, the tree to retain for the
// next version (may be nil) and the metrics mode label.
func (m *Manager) produce(plugin Plugin, st *fileState, path string, source []byte, changes []TextChange) (*ParseResult, SyntaxTree, string) {
	inc, ok := plugin.(IncrementalPlugin)
	if !ok {
		m.fullParses.Add(1)
		return normalizeResult(plugin.Parse(source, path), plugin.Language()), nil, modeFull
	}

	mode := modeFull
	// Error recovery depends on which subtrees are reused, so a tree that
	// had or has syntax errors is only trusted from a full parse.
	if m.opts.Incremental && st.tree != nil && !st.failed && st.language == plugin.Language() {
		edits := editsFor(path, st.source, source, changes)
		if len(edits) > 0 && EditSize(edits) < m.opts.IncrementalThreshold {
			res, tree := inc.Reparse(st.tree, source, edits, path)
			if res != nil && tree != nil && !res.Success {
				slog.Debug("incremental parse has syntax errors; parsing in full", "path", path)
				tree.Close()
				res, tree = nil, nil
			}
			if res != nil && tree != nil {
				res = normalizeResult(res, plugin.Language())
				if !m.opts.VerifyIncremental {
					m.incrementalParses.Add(1)
					return res, tree, modeIncremental
				}
				full, fullTree := inc.ParseTree(source, path)
				full = normalizeResult(full, plugin.Language())
				if Equal(res, full) {
					if fullTree != nil {
						fullTree.Close()
					}
					m.incrementalParses.Add(1)
					return res, tree, modeIncremental
				}
				slog.Warn("incremental parse diverged from full parse", "path", path, "language", plugin.Language())
				tree.Close()
				m.fallbacks.Add(1)
				m.fullParses.Add(1)
				return full, fullTree, modeFallback
			}
			if tree != nil {
				tree.Close()
			}
			slog.Debug("incremental parse unavailable; parsing in full", "path", path)
			m.fallbacks.Add(1)
			mode = modeFallback
		}
	}

	res, tree := inc.ParseTree(source, path)
	m.fullParses.Add(1)
	return normalizeResult(res, plugin.Language()), tree, mode
}

// editsFor resolves explicit changes against prev, falling back to a diff of
// prev and next when they are absent or inconsistent.
func editsFor(path string, prev, next []byte, changes []TextChange) []Edit {
	if len(changes) > 0 {
		edits, text, err := ResolveChanges(prev, changes)
		switch {
		case err != nil:
			slog.Debug("text changes rejected; diffing sources", "path", path, "error", err)
		case !bytes.Equal(text, next):
			slog.Debug("text changes do not reproduce source; diffing sources", "path", path)
		default:
			return edits
		}
	}
	if e, ok := DiffEdit(prev, next); ok {
		return []Edit{e}
	}
	return nil
}

func normalizeResult(res *ParseResult, lang string) *ParseResult {
	if res == nil {
		return &ParseResult{
			Success:  false,
			Language: lang,
			Errors:   []ParseError{{Message: "parser produced no result"}},
		}
	}
	if res.Language == "" {
		res.Language = lang
	}
	return res
}

// lockState returns the locked state for path, creating it when needed.
func (m *Manager) lockState(path string) (*fileState, error) {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, errors.New(errors.CodeInternal, "parser manager is closed")
		}
		st, ok := m.files[path]
		if !ok {
			st = &fileState{}
			m.files[path] = st
		}
		m.mu.Unlock()

		st.mu.Lock()
		if !st.dropped {
			return st, nil
		}
		st.mu.Unlock()
	}
}

// detach removes path's state and releases its tree. It returns the cache
// key the path was mapped to.
func (m *Manager) detach(path string) (string, bool) {
	m.mu.Lock()
	st, ok := m.files[path]
	if ok {
		delete(m.files, path)
	}
	m.mu.Unlock()
	if !ok {
		return "", false
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.dropped = true
	st.closeTree()
	return st.key, st.key != ""
}

// InvalidateCache forgets the last parsed version of path. The cached result
// itself stays until evicted, since other paths may share its content.
func (m *Manager) InvalidateCache(path string) {
	m.detach(path)
}

// InvalidateWithDependents forgets path and dependentPaths and removes their
// cached results, together with any dependents recorded through
// AddDependent. It returns the number of cache entries removed.
func (m *Manager) InvalidateWithDependents(path string, dependentPaths []string) int {
	key, _ := m.detach(path)
	extra := make([]string, 0, len(dependentPaths))
	for _, dep := range dependentPaths {
		if k, ok := m.detach(dep); ok {
			extra = append(extra, k)
		}
	}
	if key == "" && len(extra) == 0 {
		return 0
	}
	if key == "" {
		key, extra = extra[0], extra[1:]
	}
	return m.cache.Invalidate(key, extra...)
}

// AddDependent records that the cached result of dependentPath must be
// dropped whenever the result of path is invalidated.
func (m *Manager) AddDependent(path, dependentPath string) bool {
	key, ok := m.currentKey(path)
	if !ok {
		return false
	}
	depKey, ok := m.currentKey(dependentPath)
	if !ok {
		return false
	}
	return m.cache.AddDependent(key, depKey)
}

func (m *Manager) currentKey(path string) (string, bool) {
	m.mu.Lock()
	st, ok := m.files[path]
	m.mu.Unlock()
	if !ok {
		return "", false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.key, st.key != ""
}

// TrackedFiles returns the paths with a known last parsed version, sorted.
func (m *Manager) TrackedFiles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) CacheStats() cache.Stats {
	return m.cache.Stats()
}

func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	tracked := len(m.files)
	m.mu.Unlock()
	return ManagerStats{
		TrackedFiles:         tracked,
		FullParses:           m.fullParses.Load(),
		IncrementalParses:    m.incrementalParses.Load(),
		IncrementalFallbacks: m.fallbacks.Load(),
		Cache:                m.cache.Stats(),
	}
}

// Close releases every retained tree. Further parses fail.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	states := m.files
	m.files = make(map[string]*fileState)
	m.mu.Unlock()

	for _, st := range states {
		st.mu.Lock()
		st.dropped = true
		st.closeTree()
		st.mu.Unlock()
	}
	m.cache.Clear()
}

// cacheKey scopes the content hash by language so identical bytes parsed
// by different grammars do not share an entry.
func cacheKey(lang string, source []byte) string {
	return lang + ":" + cache.ComputeHash(source)
}
