package main

import (
	"driftscan/internal/core/app"
	"driftscan/internal/data/history"
	"driftscan/internal/engine/graph"
	"driftscan/internal/shared/util"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type jsonScanReport struct {
	ID            string     `json:"id"`
	Root          string     `json:"root"`
	Files         int        `json:"files"`
	Parsed        int        `json:"parsed"`
	ParseFailures int        `json:"parse_failures"`
	IOErrors      int        `json:"io_errors"`
	Modules       int        `json:"modules"`
	Edges         int        `json:"edges"`
	Cycles        [][]string `json:"cycles"`
	CacheHitRate  float64    `json:"cache_hit_rate"`
	DurationMS    int64      `json:"duration_ms"`
	Errors        []string   `json:"errors"`
}

func writeScanReport(w io.Writer, format string, r *app.ScanReport) error {
	cycles := relativeCycles(r.Root, r.Cycles)
	if format == "json" {
		return writeJSON(w, jsonScanReport{
			ID:            r.ID,
			Root:          r.Root,
			Files:         r.Files,
			Parsed:        r.Parsed,
			ParseFailures: r.ParseFailures,
			IOErrors:      r.IOErrors,
			Modules:       r.Modules,
			Edges:         r.Edges,
			Cycles:        cycles,
			CacheHitRate:  r.CacheStats.HitRate,
			DurationMS:    r.Duration.Milliseconds(),
			Errors:        r.Errors,
		})
	}

	fmt.Fprintln(w, r.Summary())
	fmt.Fprintf(w, "modules: %d, edges: %d, duration: %s\n", r.Modules, r.Edges, r.Duration.Round(time.Millisecond))
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
	writeCycleLines(w, cycles)
	return nil
}

func relativeCycles(root string, cycles [][]string) [][]string {
	out := make([][]string, 0, len(cycles))
	for _, c := range cycles {
		rel := make([]string, len(c))
		for i, p := range c {
			rel[i] = util.RelativeTo(root, p)
		}
		out = append(out, rel)
	}
	return out
}

func writeCycleLines(w io.Writer, cycles [][]string) {
	if len(cycles) == 0 {
		fmt.Fprintln(w, "no import cycles")
		return
	}
	fmt.Fprintf(w, "%d import cycles:\n", len(cycles))
	for _, c := range cycles {
		fmt.Fprintf(w, "  %s -> %s\n", strings.Join(c, " -> "), c[0])
	}
}

func writeCycles(w io.Writer, format, root string, cycles [][]string) error {
	rel := relativeCycles(root, cycles)
	if format == "json" {
		return writeJSON(w, rel)
	}
	writeCycleLines(w, rel)
	return nil
}

func writePaths(w io.Writer, format, root string, paths []string) error {
	rel := make([]string, len(paths))
	for i, p := range paths {
		rel[i] = util.RelativeTo(root, p)
	}
	if format == "json" {
		return writeJSON(w, rel)
	}
	for _, p := range rel {
		fmt.Fprintln(w, p)
	}
	return nil
}

func writeAdjacency(w io.Writer, format, root string, g *graph.Graph) error {
	adjacency := make(map[string][]string)
	for _, m := range g.Modules() {
		deps := g.Dependencies(m)
		rel := make([]string, len(deps))
		for i, d := range deps {
			rel[i] = util.RelativeTo(root, d)
		}
		adjacency[util.RelativeTo(root, m)] = rel
	}
	if format == "json" {
		return writeJSON(w, adjacency)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tDEPENDENCIES")
	for _, m := range util.SortedStringKeys(adjacency) {
		fmt.Fprintf(tw, "%s\t%s\n", m, strings.Join(adjacency[m], ", "))
	}
	return tw.Flush()
}

func writeUpdate(w io.Writer, format string, u app.Update) {
	if format == "json" {
		_ = writeJSON(w, u)
		return
	}
	fmt.Fprintf(w, "%s changed: %d, removed: %d, modules: %d, edges: %d, cycles: %d\n",
		time.Now().Format(time.TimeOnly), len(u.Changed), len(u.Removed), u.ModuleCount, u.EdgeCount, len(u.Cycles))
}

func writeSnapshots(w io.Writer, format string, snaps []history.Snapshot) error {
	if format == "json" {
		return writeJSON(w, snaps)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tFILES\tERRORS\tMODULES\tEDGES\tCYCLES\tHIT RATE\tDURATION")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%.2f\t%s\n",
			s.Timestamp.Local().Format(time.DateTime), s.FileCount, s.ErrorCount+s.ParseFailures,
			s.ModuleCount, s.EdgeCount, s.CycleCount, s.CacheHitRate, s.Duration)
	}
	return tw.Flush()
}
