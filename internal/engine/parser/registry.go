package parser

import (
	"driftscan/internal/core/errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registry maps file extensions to plugins. Lookups are safe to run
// concurrently with registration.
type Registry struct {
	mu     sync.RWMutex
	byExt  map[string]Plugin
	byLang map[string]Plugin
}

func NewRegistry() *Registry {
	return &Registry{
		byExt:  make(map[string]Plugin),
		byLang: make(map[string]Plugin),
	}
}

// Register validates p and claims its extensions. An extension may belong to
// one plugin only.
func (r *Registry) Register(p Plugin) error {
	if p == nil {
		return errors.New(errors.CodeValidationError, "plugin is nil")
	}
	lang := strings.TrimSpace(p.Language())
	if lang == "" {
		return errors.New(errors.CodeValidationError, "plugin language must not be empty")
	}
	exts := p.Extensions()
	if len(exts) == 0 {
		return errors.AddContext(errors.New(errors.CodeValidationError, "plugin declares no extensions"), errors.CtxLanguage, lang)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byLang[lang]; exists {
		return errors.AddContext(errors.New(errors.CodeConflict, "language already registered"), errors.CtxLanguage, lang)
	}
	normalized := make([]string, 0, len(exts))
	for _, ext := range exts {
		n := normalizeExt(ext)
		if n == "" {
			return errors.AddContext(errors.New(errors.CodeValidationError, "empty extension"), errors.CtxLanguage, lang)
		}
		if owner, taken := r.byExt[n]; taken {
			err := errors.New(errors.CodeConflict, "extension already registered")
			err = errors.AddContext(err, errors.CtxExtension, n)
			return errors.AddContext(err, errors.CtxLanguage, owner.Language())
		}
		normalized = append(normalized, n)
	}
	for _, n := range normalized {
		r.byExt[n] = p
	}
	r.byLang[lang] = p
	return nil
}

// PluginFor resolves the plugin for path by its lower-cased extension.
func (r *Registry) PluginFor(path string) (Plugin, error) {
	ext := normalizeExt(filepath.Ext(path))
	r.mu.RLock()
	p, ok := r.byExt[ext]
	r.mu.RUnlock()
	if !ok {
		err := errors.New(errors.CodeNotSupported, "no parser registered for extension")
		err = errors.AddContext(err, errors.CtxExtension, ext)
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return p, nil
}

func (r *Registry) PluginForLanguage(lang string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byLang[lang]
	return p, ok
}

func (r *Registry) Supports(path string) bool {
	_, err := r.PluginFor(path)
	return err == nil
}

// Languages returns the registered language names, sorted.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byLang))
	for lang := range r.byLang {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Extensions returns every claimed extension, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
