package app

import (
	"context"
	"driftscan/internal/data/history"
	"driftscan/internal/engine/cache"
	"driftscan/internal/engine/parser"
	"driftscan/internal/engine/resolver"
	"driftscan/internal/engine/walker"
	"driftscan/internal/shared/observability"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

type ScanReport struct {
	ID            string
	Root          string
	Files         int
	Parsed        int
	ParseFailures int
	IOErrors      int
	Modules       int
	Edges         int
	Cycles        [][]string
	CacheStats    cache.Stats
	Duration      time.Duration
	// Errors lists per-file problems as "path: message", sorted.
	Errors []string
}

// Summary is the one-line outcome printed after a scan.
func (r *ScanReport) Summary() string {
	return fmt.Sprintf("%d files scanned, %d errors", r.Files, r.IOErrors+r.ParseFailures)
}

type parsedFile struct {
	path   string
	result *parser.ParseResult
}

// Scan walks the root, parses every supported file and rebuilds the graph.
// Per-file failures are reported, not returned; an error means the scan
// could not run at all or ctx was cancelled.
func (a *App) Scan(ctx context.Context) (*ScanReport, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Scan")
	defer span.End()
	start := time.Now()

	report := &ScanReport{ID: uuid.NewString(), Root: a.root}

	walked, err := walker.Walk(ctx, a.walkOptions())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	report.Files = len(walked.Files)
	for _, werr := range walked.Errors {
		report.IOErrors++
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %s: %v", werr.Path, werr.Op, werr.Err))
	}

	candidates := make([]walker.FileEntry, 0, len(walked.Files))
	for _, f := range walked.Files {
		if a.registry.Supports(f.Path) {
			candidates = append(candidates, f)
		}
	}

	parsed, failures := a.parseAll(ctx, candidates)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, f := range failures {
		report.IOErrors++
		report.Errors = append(report.Errors, f)
	}

	a.mu.Lock()
	present := make([]string, 0, len(parsed))
	for _, p := range parsed {
		present = append(present, p.path)
	}
	a.resolver = resolver.New(a.root, present)

	seen := make(map[string]bool, len(parsed))
	for _, p := range parsed {
		seen[p.path] = true
		report.Parsed++
		if !p.result.Success {
			report.ParseFailures++
			for _, perr := range p.result.Errors {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %s at %s", p.path, perr.Message, perr.Position))
			}
		}
		a.files[p.path] = a.newSourceFile(p.result)
	}
	for path := range a.files {
		if !seen[path] {
			delete(a.files, path)
		}
	}
	for _, p := range parsed {
		a.link(p.path)
	}
	for _, path := range a.graph.Modules() {
		if !seen[path] {
			a.graph.RemoveModule(path)
			a.parsers.InvalidateCache(path)
		}
	}
	a.mu.Unlock()

	cycles := a.graph.DetectCircularDependencies()
	report.Cycles = cycles.Cycles
	report.Modules = a.graph.Size()
	report.Edges = a.graph.EdgeCount()
	report.CacheStats = a.parsers.CacheStats()
	report.Duration = time.Since(start)
	sort.Strings(report.Errors)

	observability.AnalysisDuration.WithLabelValues("scan").Observe(report.Duration.Seconds())
	span.SetAttributes(
		attribute.Int("scan.files", report.Files),
		attribute.Int("scan.modules", report.Modules),
		attribute.Int("scan.cycles", len(report.Cycles)),
	)
	slog.Info("scan complete",
		"root", a.root,
		"files", report.Files,
		"errors", report.IOErrors+report.ParseFailures,
		"modules", report.Modules,
		"edges", report.Edges,
		"cycles", len(report.Cycles),
		"duration", report.Duration,
	)

	a.recordHistory(report)
	return report, nil
}

// parseAll reads and parses files on a bounded pool. Results are sorted by
// path; read failures are returned as messages.
func (a *App) parseAll(ctx context.Context, files []walker.FileEntry) ([]parsedFile, []string) {
	workers := a.cfg.Scan.ParseWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]*parser.ParseResult, len(files))
	problems := make([]string, len(files))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if limit := a.cfg.Scan.MaxFileSize; limit > 0 && f.Size > limit {
				slog.Debug("skipping oversized file", "path", f.Path, "size", f.Size)
				return nil
			}
			content, err := os.ReadFile(f.Path)
			if err != nil {
				slog.Warn("failed to read file", "path", f.Path, "error", err)
				problems[i] = fmt.Sprintf("%s: read: %v", f.Path, err)
				return nil
			}
			res, err := a.parsers.Parse(f.Path, content)
			if err != nil {
				slog.Warn("failed to parse file", "path", f.Path, "error", err)
				problems[i] = fmt.Sprintf("%s: parse: %v", f.Path, err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	parsed := make([]parsedFile, 0, len(files))
	var failures []string
	for i, f := range files {
		if results[i] != nil {
			parsed = append(parsed, parsedFile{path: f.Path, result: results[i]})
		}
		if problems[i] != "" {
			failures = append(failures, problems[i])
		}
	}
	return parsed, failures
}

func (a *App) recordHistory(report *ScanReport) {
	if a.history == nil {
		return
	}
	snap := history.Snapshot{
		ID:            report.ID,
		Root:          report.Root,
		Timestamp:     time.Now().UTC(),
		FileCount:     report.Files,
		ParsedCount:   report.Parsed,
		ParseFailures: report.ParseFailures,
		ErrorCount:    report.IOErrors,
		ModuleCount:   report.Modules,
		EdgeCount:     report.Edges,
		CycleCount:    len(report.Cycles),
		CacheHitRate:  report.CacheStats.HitRate,
		Duration:      report.Duration,
	}
	if err := a.history.SaveSnapshot(snap); err != nil {
		slog.Warn("failed to record scan history", "error", err)
		return
	}
	if retain := a.cfg.History.Retain; retain > 0 {
		if _, err := a.history.Prune(report.Root, retain); err != nil {
			slog.Warn("failed to prune scan history", "error", err)
		}
	}
}
