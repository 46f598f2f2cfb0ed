package watcher

import (
	"driftscan/internal/core/errors"
	"driftscan/internal/engine/cache"
	"driftscan/internal/shared/observability"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

type Options struct {
	Debounce time.Duration
	// ExcludeDirs and ExcludeFiles are globs matched against base names.
	ExcludeDirs  []string
	ExcludeFiles []string
	// Extensions restricts reported files. Empty reports every file.
	Extensions []string
	// Ignore, when set, excludes paths by their full path. Ignored
	// directories are never registered with fsnotify.
	Ignore func(path string, isDir bool) bool
}

// Change is one debounced file event. Removed is set when the file no
// longer exists at flush time.
type Change struct {
	Path    string
	Removed bool
}

type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	debounce     time.Duration
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	extFilters   map[string]bool
	ignore       func(path string, isDir bool) bool
	onChange     func([]Change)
	callbackMu   sync.Mutex

	pending   map[string]bool
	pendingMu sync.Mutex
	timer     *time.Timer

	hashes   map[string]string
	hashesMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

func New(opts Options, onChange func([]Change)) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New(errors.CodeValidationError, "watcher callback must not be nil")
	}

	excludeDirs, err := compileAll(opts.ExcludeDirs)
	if err != nil {
		return nil, err
	}
	excludeFiles, err := compileAll(opts.ExcludeFiles)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "create fsnotify watcher")
	}

	w := &Watcher{
		fsWatcher:    fsw,
		debounce:     opts.Debounce,
		excludeDirs:  excludeDirs,
		excludeFiles: excludeFiles,
		ignore:       opts.Ignore,
		onChange:     onChange,
		pending:      make(map[string]bool),
		hashes:       make(map[string]string),
		done:         make(chan struct{}),
	}
	if len(opts.Extensions) > 0 {
		w.extFilters = make(map[string]bool, len(opts.Extensions))
		for _, ext := range opts.Extensions {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			w.extFilters[ext] = true
		}
	}
	return w, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "invalid exclude pattern"), "pattern", pattern)
		}
		out = append(out, g)
	}
	return out, nil
}

// Watch registers every non-excluded directory below paths and starts the
// event loop. Files already present are hashed so unchanged rewrites are
// not reported.
func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		if err := w.watchRecursive(path, false); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeIO, "watch directory"), errors.CtxPath, path)
		}
	}

	go w.run()
	return nil
}

// Prime records the content hash of a file the caller has already processed.
func (w *Watcher) Prime(path, hash string) {
	w.hashesMu.Lock()
	defer w.hashesMu.Unlock()
	w.hashes[path] = hash
}

func (w *Watcher) watchRecursive(root string, enqueue bool) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != root && w.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}

		if w.shouldExcludeFile(path) || (w.ignore != nil && w.ignore(path, false)) {
			return nil
		}
		if enqueue {
			w.scheduleChange(path)
		} else if content, err := os.ReadFile(path); err == nil {
			w.Prime(path, cache.ComputeHash(content))
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.shouldExcludeDir(event.Name) {
						// Files created before the directory was registered
						// produce no events of their own.
						if err := w.watchRecursive(event.Name, true); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						}
					}
					continue
				}
			}

			if w.shouldExcludeFile(event.Name) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = true

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]bool)
	w.pendingMu.Unlock()

	sort.Strings(paths)
	changes := make([]Change, 0, len(paths))
	for _, path := range paths {
		if change, ok := w.classify(path); ok {
			changes = append(changes, change)
		}
	}

	if len(changes) > 0 {
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		select {
		case <-w.done:
			return
		default:
		}
		w.onChange(changes)
	}
}

// classify turns a pending path into a Change, dropping writes that left
// the content hash unchanged.
func (w *Watcher) classify(path string) (Change, bool) {
	content, err := os.ReadFile(path)
	w.hashesMu.Lock()
	defer w.hashesMu.Unlock()

	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read changed file", "path", path, "error", err)
			return Change{}, false
		}
		delete(w.hashes, path)
		return Change{Path: path, Removed: true}, true
	}

	hash := cache.ComputeHash(content)
	if prev, ok := w.hashes[path]; ok && prev == hash {
		slog.Debug("content unchanged; suppressing event", "path", path)
		return Change{}, false
	}
	w.hashes[path] = hash
	return Change{Path: path}, true
}

func (w *Watcher) shouldExcludeDir(path string) bool {
	if w.ignore != nil && w.ignore(path, true) {
		return true
	}
	base := filepath.Base(path)
	for _, g := range w.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldExcludeFile(path string) bool {
	base := filepath.Base(path)

	if w.extFilters != nil && !w.extFilters[strings.ToLower(filepath.Ext(base))] {
		return true
	}

	for _, g := range w.excludeFiles {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		w.pendingMu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.pendingMu.Unlock()
		err = w.fsWatcher.Close()
	})
	return err
}
