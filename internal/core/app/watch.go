package app

import (
	"context"
	"driftscan/internal/core/watcher"
	"log/slog"
)

// Watch processes file changes under the root until ctx is done. Changes are
// throttled by the configured rate limit; each batch ends with an Update.
func (a *App) Watch(ctx context.Context) error {
	ignore, err := a.ignoreMatcher()
	if err != nil {
		return err
	}
	batches := make(chan []watcher.Change, 64)
	w, err := watcher.New(watcher.Options{
		Debounce:     a.cfg.Watch.Debounce,
		ExcludeDirs:  a.cfg.Watch.ExcludeDirs,
		ExcludeFiles: a.cfg.Watch.ExcludeFiles,
		Extensions:   a.walkOptions().Extensions,
		Ignore:       ignore.Excluded,
	}, func(changes []watcher.Change) {
		select {
		case batches <- changes:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch([]string{a.root}); err != nil {
		return err
	}
	slog.Info("watching for changes", "root", a.root, "debounce", a.cfg.Watch.Debounce)

	for {
		select {
		case <-ctx.Done():
			return nil
		case changes := <-batches:
			if err := a.HandleChanges(ctx, changes); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// HandleChanges applies one batch of watcher changes and publishes an Update.
// Paths a scan would skip are kept out of the graph; one that is already in
// it, for example after an ignore file changed, is removed.
func (a *App) HandleChanges(ctx context.Context, changes []watcher.Change) error {
	ignore, err := a.ignoreMatcher()
	if err != nil {
		return err
	}

	var update Update
	for _, change := range changes {
		if err := a.limiter.Wait(ctx, 1); err != nil {
			return err
		}
		if !change.Removed && ignore.Excluded(change.Path, false) {
			slog.Debug("ignoring change to excluded path", "path", change.Path)
			if a.RemoveFile(change.Path) {
				update.Removed = append(update.Removed, change.Path)
			}
			continue
		}
		if change.Removed {
			if a.RemoveFile(change.Path) {
				update.Removed = append(update.Removed, change.Path)
			}
			continue
		}
		res, err := a.ProcessFile(ctx, change.Path)
		if err != nil {
			slog.Warn("failed to process changed file", "path", change.Path, "error", err)
			continue
		}
		update.Changed = append(update.Changed, res.Path)
	}

	update.ModuleCount = a.graph.Size()
	update.EdgeCount = a.graph.EdgeCount()
	update.Cycles = a.graph.DetectCircularDependencies().Cycles
	slog.Info("changes processed",
		"changed", len(update.Changed),
		"removed", len(update.Removed),
		"modules", update.ModuleCount,
		"cycles", len(update.Cycles),
	)
	if a.onUpdate != nil {
		a.onUpdate(update)
	}
	return nil
}
