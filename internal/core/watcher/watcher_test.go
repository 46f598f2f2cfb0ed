package watcher

import (
	"driftscan/internal/core/errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func startWatcher(t *testing.T, opts Options) (string, <-chan []Change) {
	t.Helper()
	dir := t.TempDir()
	changes := make(chan []Change, 16)
	w, err := New(opts, func(c []Change) { changes <- c })
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })
	if err := w.Watch([]string{dir}); err != nil {
		t.Fatal(err)
	}
	return dir, changes
}

// waitFor drains batches until one contains path, returning that change.
func waitFor(t *testing.T, changes <-chan []Change, path string) Change {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case batch := <-changes:
			for _, c := range batch {
				if c.Path == path {
					return c
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for event on %s", path)
		}
	}
}

func expectQuiet(t *testing.T, changes <-chan []Change, wait time.Duration) {
	t.Helper()
	select {
	case batch := <-changes:
		t.Errorf("unexpected changes: %+v", batch)
	case <-time.After(wait):
	}
}

func TestNew_RejectsNilCallback(t *testing.T) {
	w, err := New(Options{}, nil)
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestNew_RejectsBadPattern(t *testing.T) {
	_, err := New(Options{ExcludeFiles: []string{"[a"}}, func([]Change) {})
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWatcher_CreateAndExclude(t *testing.T) {
	dir, changes := startWatcher(t, Options{
		Debounce:     50 * time.Millisecond,
		ExcludeDirs:  []string{"vendor"},
		ExcludeFiles: []string{"*.gen.ts"},
		Extensions:   []string{"ts", ".go"},
	})

	excluded := filepath.Join(dir, "api.gen.ts")
	other := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(excluded, []byte("export {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(other, []byte("# notes"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectQuiet(t, changes, 300*time.Millisecond)

	target := filepath.Join(dir, "main.ts")
	if err := os.WriteFile(target, []byte("export const a = 1;"), 0o644); err != nil {
		t.Fatal(err)
	}
	if c := waitFor(t, changes, target); c.Removed {
		t.Errorf("create reported as removal: %+v", c)
	}
}

func TestWatcher_NewDirectoryIsWatched(t *testing.T) {
	dir, changes := startWatcher(t, Options{Debounce: 50 * time.Millisecond})

	subdir := filepath.Join(dir, "pkg", "inner")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(subdir, "nested.go")
	if err := os.WriteFile(nested, []byte("package inner"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changes, nested)
}

func TestWatcher_SuppressesIdenticalContent(t *testing.T) {
	dir, changes := startWatcher(t, Options{Debounce: 50 * time.Millisecond})

	target := filepath.Join(dir, "hash_target.go")
	content := []byte("package main\nfunc main() {}\n")
	if err := os.WriteFile(target, content, 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changes, target)

	if err := os.WriteFile(target, content, 0o644); err != nil {
		t.Fatal(err)
	}
	expectQuiet(t, changes, 300*time.Millisecond)

	if err := os.WriteFile(target, []byte("package main\nfunc main() { println(1) }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changes, target)
}

func TestWatcher_PreexistingFilesArePrimed(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "lib.py")
	content := []byte("import os\n")
	if err := os.WriteFile(target, content, 0o644); err != nil {
		t.Fatal(err)
	}

	changes := make(chan []Change, 4)
	w, err := New(Options{Debounce: 50 * time.Millisecond}, func(c []Change) { changes <- c })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch([]string{dir}); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(target, content, 0o644); err != nil {
		t.Fatal(err)
	}
	expectQuiet(t, changes, 300*time.Millisecond)
}

func TestWatcher_RemoveAndRename(t *testing.T) {
	dir, changes := startWatcher(t, Options{Debounce: 50 * time.Millisecond})

	oldPath := filepath.Join(dir, "old.go")
	newPath := filepath.Join(dir, "new.go")
	if err := os.WriteFile(oldPath, []byte("package main"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changes, oldPath)

	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}
	if c := waitFor(t, changes, oldPath); !c.Removed {
		t.Errorf("renamed-away path should be reported removed: %+v", c)
	}
}

func TestWatcher_IgnoredDirectoriesAreNotWatched(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "node_modules", "dep"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	ignore := func(path string, isDir bool) bool {
		base := filepath.Base(path)
		return (isDir && (base == "node_modules" || base == "build"))
	}

	changes := make(chan []Change, 16)
	w, err := New(Options{Debounce: 50 * time.Millisecond, Ignore: ignore}, func(c []Change) { changes <- c })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch([]string{dir}); err != nil {
		t.Fatal(err)
	}

	watched := w.fsWatcher.WatchList()
	if !slices.Contains(watched, filepath.Join(dir, "src")) {
		t.Fatalf("expected src to be watched, got %v", watched)
	}
	for _, p := range watched {
		if filepath.Base(p) == "node_modules" || filepath.Base(p) == "dep" {
			t.Fatalf("ignored directory registered: %v", watched)
		}
	}

	build := filepath.Join(dir, "build")
	if err := os.Mkdir(build, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(build, "out.ts"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectQuiet(t, changes, 300*time.Millisecond)
	if slices.Contains(w.fsWatcher.WatchList(), build) {
		t.Fatal("new ignored directory was registered")
	}

	kept := filepath.Join(dir, "src", "kept.ts")
	if err := os.WriteFile(kept, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changes, kept)
}

func TestWatcher_ShouldExcludeFile(t *testing.T) {
	w, err := New(Options{Extensions: []string{".go"}, ExcludeFiles: []string{"*_test.go"}}, func([]Change) {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	tests := []struct {
		path string
		want bool
	}{
		{"main.go", false},
		{"MAIN.GO", false},
		{"main.py", true},
		{"main_test.go", true},
		{"Makefile", true},
	}
	for _, tt := range tests {
		if got := w.shouldExcludeFile(tt.path); got != tt.want {
			t.Errorf("shouldExcludeFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
