package walker

import (
	"driftscan/internal/core/errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Matcher answers, for one path at a time, whether a Walk with the same
// options would leave it out. Ignore files are re-read when their size or
// modification time changes.
type Matcher struct {
	root string
	opts Options
	base *RuleSet

	mu    sync.Mutex
	files map[string]ignoreFile
}

type ignoreFile struct {
	size    int64
	modTime time.Time
	rules   []Rule
}

func NewMatcher(opts Options) (*Matcher, error) {
	root, err := validateRoot(opts.RootDir)
	if err != nil {
		return nil, err
	}
	base, err := baseRules(opts)
	if err != nil {
		return nil, err
	}
	return &Matcher{root: root, opts: opts, base: base, files: make(map[string]ignoreFile)}, nil
}

func (m *Matcher) Root() string { return m.root }

// Excluded reports whether path is skipped by a walk: it lies outside the
// root, under an excluded or too-deep directory, matches an ignore rule, or
// is an ignore file the walk consumes.
func (m *Matcher) Excluded(path string, isDir bool) bool {
	rel, err := filepath.Rel(m.root, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	if rel == "." {
		return false
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	rules := m.base
	dir, relDir := m.root, ""
	for i, name := range parts {
		rules = m.withIgnoreFiles(rules, dir, relDir)

		childRel := name
		if relDir != "" {
			childRel = relDir + "/" + name
		}
		last := i == len(parts)-1
		if rules.Excluded(childRel, !last || isDir) {
			return true
		}
		if !last && m.opts.MaxDepth > 0 && i+1 > m.opts.MaxDepth {
			return true
		}
		if last && !isDir {
			return (name == GitignoreFile && m.opts.RespectGitignore) ||
				(name == DriftignoreFile && m.opts.RespectDriftignore)
		}
		dir, relDir = filepath.Join(dir, name), childRel
	}
	return isDir && m.opts.MaxDepth > 0 && len(parts) > m.opts.MaxDepth
}

func (m *Matcher) withIgnoreFiles(rules *RuleSet, dir, rel string) *RuleSet {
	if m.opts.RespectGitignore {
		rules = rules.With(m.load(dir, GitignoreFile, rel))
	}
	if m.opts.RespectDriftignore {
		rules = rules.With(m.load(dir, DriftignoreFile, rel))
	}
	return rules
}

func (m *Matcher) load(dir, name, base string) []Rule {
	full := filepath.Join(dir, name)
	info, err := os.Stat(full)
	if err != nil {
		m.mu.Lock()
		delete(m.files, full)
		m.mu.Unlock()
		return nil
	}

	m.mu.Lock()
	cached, ok := m.files[full]
	m.mu.Unlock()
	if ok && cached.size == info.Size() && cached.modTime.Equal(info.ModTime()) {
		return cached.rules
	}

	rules, err := loadIgnoreFile(dir, name, base)
	if err != nil {
		slog.Warn("ignore file skipped", "path", full, "error", err)
	}
	m.mu.Lock()
	m.files[full] = ignoreFile{size: info.Size(), modTime: info.ModTime(), rules: rules}
	m.mu.Unlock()
	return rules
}

// baseRules compiles the default and option patterns shared by every
// directory of a walk.
func baseRules(opts Options) (*RuleSet, error) {
	var base []Rule
	if !opts.SkipDefaultIgnores {
		defaults, err := PatternRules(DefaultIgnorePatterns, "defaults")
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "compile default ignore patterns")
		}
		base = append(base, defaults...)
	}
	userRules, err := PatternRules(opts.IgnorePatterns, "options")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid ignore pattern")
	}
	base = append(base, userRules...)
	return NewRuleSet(base...), nil
}
