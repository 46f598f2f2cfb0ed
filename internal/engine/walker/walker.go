package walker

import (
	"context"
	"driftscan/internal/core/errors"
	"driftscan/internal/engine/cache"
	"driftscan/internal/shared/observability"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options configures a single walk. Only RootDir is required.
type Options struct {
	RootDir            string
	IgnorePatterns     []string
	RespectGitignore   bool
	RespectDriftignore bool
	FollowSymlinks     bool
	// MaxDepth limits how many directory levels below RootDir are visited.
	// Zero means unlimited.
	MaxDepth int
	// Extensions is an allow-list; entries may omit the leading dot.
	Extensions    []string
	ComputeHashes bool
	// Workers bounds concurrent directory visits. Zero uses GOMAXPROCS.
	Workers int
	// SkipDefaultIgnores disables DefaultIgnorePatterns.
	SkipDefaultIgnores bool
}

type FileEntry struct {
	Path         string
	RelativePath string
	Name         string
	Extension    string
	Language     string
	Size         int64
	ModTime      time.Time
	ContentHash  string
}

type DirEntry struct {
	Path         string
	RelativePath string
	Name         string
	Depth        int
}

type Stats struct {
	TotalFiles       int
	TotalDirectories int
	TotalBytes       int64
	SkippedFiles     int
	IgnoredEntries   int
	ErrorCount       int
	Duration         time.Duration
	ByExtension      map[string]int
	ByLanguage       map[string]int
}

// WalkError records a per-entry I/O failure. The entry is skipped and the
// walk continues.
type WalkError struct {
	Path string
	Op   string
	Err  error
}

func (e WalkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e WalkError) Unwrap() error { return e.Err }

type Result struct {
	Root        string
	Files       []FileEntry
	Directories []DirEntry
	Stats       Stats
	Success     bool
	Errors      []WalkError
}

type walkState struct {
	ctx   context.Context
	opts  Options
	root  string
	exts  map[string]bool
	group *errgroup.Group

	mu     sync.Mutex
	result *Result

	realMu   sync.Mutex
	realDirs map[string]bool
}

// Walk traverses opts.RootDir depth-first and returns the file inventory.
// Per-entry I/O failures are recorded in the result; only an invalid root or
// invalid option patterns are returned as errors. Cancelling ctx stops the
// walk between directory visits and returns the partial result together with
// the context error.
func Walk(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	root, err := validateRoot(opts.RootDir)
	if err != nil {
		return nil, err
	}

	base, err := baseRules(opts)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	group := &errgroup.Group{}
	group.SetLimit(workers)

	s := &walkState{
		ctx:   ctx,
		opts:  opts,
		root:  root,
		exts:  extensionSet(opts.Extensions),
		group: group,
		result: &Result{
			Root: root,
			Stats: Stats{
				ByExtension: make(map[string]int),
				ByLanguage:  make(map[string]int),
			},
		},
		realDirs: make(map[string]bool),
	}
	if opts.FollowSymlinks {
		if real, err := filepath.EvalSymlinks(root); err == nil {
			s.realDirs[real] = true
		}
	}

	s.visitDir(root, "", 0, base)
	_ = group.Wait()

	res := s.result
	sortResult(res)
	res.Stats.Duration = time.Since(start)
	res.Success = ctx.Err() == nil

	observability.WalkDuration.Observe(res.Stats.Duration.Seconds())
	observability.WalkFilesTotal.Add(float64(res.Stats.TotalFiles))
	observability.WalkErrorsTotal.Add(float64(res.Stats.ErrorCount))

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

func validateRoot(rootDir string) (string, error) {
	if rootDir == "" {
		return "", errors.New(errors.CodeValidationError, "root directory must not be empty")
	}
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return "", errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "resolve root directory"), errors.CtxPath, rootDir)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "root directory is not accessible"), errors.CtxPath, abs)
	}
	if !info.IsDir() {
		return "", errors.AddContext(errors.New(errors.CodeValidationError, "root is not a directory"), errors.CtxPath, abs)
	}
	return filepath.Clean(abs), nil
}

func extensionSet(exts []string) map[string]bool {
	if len(exts) == 0 {
		return nil
	}
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		if n := normalizeExtension(ext); n != "" {
			set[n] = true
		}
	}
	return set
}

// visitDir lists one directory. Sub-directories are handed to the worker
// pool when a slot is free and visited inline otherwise.
func (s *walkState) visitDir(dir, rel string, depth int, inherited *RuleSet) {
	if s.ctx.Err() != nil {
		return
	}

	rules := inherited
	if s.opts.RespectGitignore {
		rules = s.withIgnoreFile(rules, dir, rel, GitignoreFile)
	}
	if s.opts.RespectDriftignore {
		rules = s.withIgnoreFile(rules, dir, rel, DriftignoreFile)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.recordError(dir, "readdir", err)
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(dir, name)
		childRel := name
		if rel != "" {
			childRel = rel + "/" + name
		}

		isDir := entry.IsDir()
		if entry.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(full)
			if err != nil {
				s.recordError(full, "stat", err)
				continue
			}
			if target.IsDir() {
				if !s.opts.FollowSymlinks {
					slog.Debug("skipping symlinked directory", "path", full)
					continue
				}
			}
			isDir = target.IsDir()
		}

		if rules.Excluded(childRel, isDir) {
			s.mu.Lock()
			s.result.Stats.IgnoredEntries++
			s.mu.Unlock()
			continue
		}

		if isDir {
			childDepth := depth + 1
			if s.opts.MaxDepth > 0 && childDepth > s.opts.MaxDepth {
				continue
			}
			// Claimed only once the entry is known to be visited, so an
			// excluded link never hides its target.
			if s.opts.FollowSymlinks && !s.claimRealDir(full) {
				continue
			}
			s.mu.Lock()
			s.result.Directories = append(s.result.Directories, DirEntry{
				Path:         full,
				RelativePath: childRel,
				Name:         name,
				Depth:        childDepth,
			})
			s.result.Stats.TotalDirectories++
			s.mu.Unlock()

			childRules := rules
			if !s.group.TryGo(func() error {
				s.visitDir(full, childRel, childDepth, childRules)
				return nil
			}) {
				s.visitDir(full, childRel, childDepth, childRules)
			}
			continue
		}

		if s.isConsumedIgnoreFile(name) {
			continue
		}
		s.visitFile(full, childRel, name)
	}
}

// isConsumedIgnoreFile reports whether name is an ignore file the walk reads
// as configuration; those are not part of the inventory.
func (s *walkState) isConsumedIgnoreFile(name string) bool {
	return (name == GitignoreFile && s.opts.RespectGitignore) ||
		(name == DriftignoreFile && s.opts.RespectDriftignore)
}

func (s *walkState) visitFile(full, rel, name string) {
	ext := normalizeExtension(filepath.Ext(name))
	if s.exts != nil && !s.exts[ext] {
		s.mu.Lock()
		s.result.Stats.SkippedFiles++
		s.mu.Unlock()
		return
	}

	info, err := os.Stat(full)
	if err != nil {
		s.recordError(full, "stat", err)
		return
	}

	fe := FileEntry{
		Path:         full,
		RelativePath: rel,
		Name:         name,
		Extension:    ext,
		Language:     LanguageForExtension(ext),
		Size:         info.Size(),
		ModTime:      info.ModTime(),
	}

	if s.opts.ComputeHashes {
		content, err := os.ReadFile(full)
		if err != nil {
			s.recordError(full, "read", err)
			return
		}
		fe.ContentHash = cache.ComputeHash(content)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.result.Files = append(s.result.Files, fe)
	s.result.Stats.TotalFiles++
	s.result.Stats.TotalBytes += fe.Size
	if ext != "" {
		s.result.Stats.ByExtension[ext]++
	}
	if fe.Language != "" {
		s.result.Stats.ByLanguage[fe.Language]++
	}
}

func (s *walkState) withIgnoreFile(rules *RuleSet, dir, rel, name string) *RuleSet {
	local, err := loadIgnoreFile(dir, name, rel)
	if err != nil {
		s.recordError(filepath.Join(dir, name), "read ignore file", err)
	}
	return rules.With(local)
}

// claimRealDir reports whether the symlink target of dir has not been
// visited yet, marking it visited.
func (s *walkState) claimRealDir(dir string) bool {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		s.recordError(dir, "resolve symlink", err)
		return false
	}
	s.realMu.Lock()
	defer s.realMu.Unlock()
	if s.realDirs[real] {
		return false
	}
	s.realDirs[real] = true
	return true
}

func (s *walkState) recordError(path, op string, err error) {
	slog.Warn("walk entry skipped", "path", path, "op", op, "error", err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result.Errors = append(s.result.Errors, WalkError{Path: path, Op: op, Err: err})
	s.result.Stats.ErrorCount++
}

func sortResult(res *Result) {
	sort.Slice(res.Files, func(i, j int) bool {
		return res.Files[i].RelativePath < res.Files[j].RelativePath
	})
	sort.Slice(res.Directories, func(i, j int) bool {
		return res.Directories[i].RelativePath < res.Directories[j].RelativePath
	})
	sort.Slice(res.Errors, func(i, j int) bool {
		if res.Errors[i].Path != res.Errors[j].Path {
			return res.Errors[i].Path < res.Errors[j].Path
		}
		return res.Errors[i].Op < res.Errors[j].Op
	})
}
