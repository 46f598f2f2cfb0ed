package main

import (
	"driftscan/internal/core/app"
	"driftscan/internal/core/errors"
	"driftscan/internal/data/history"
	"driftscan/internal/engine/graph"
	"driftscan/internal/ui/report/formats"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
)

var flagFailOnCycles bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the tree once and report files, errors and cycles",
	Args:  cobra.NoArgs,
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&flagFailOnCycles, "fail-on-cycles", false, "exit non-zero when import cycles exist")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := s.app.Scan(ctx)
	if err != nil {
		return err
	}
	if err := writeScanReport(cmd.OutOrStdout(), flagFormat, report); err != nil {
		return err
	}
	if flagFailOnCycles && len(report.Cycles) > 0 {
		return errors.AddContext(errors.New(errors.CodeCycle, fmt.Sprintf("%d import cycles found", len(report.Cycles))), errors.CtxModules, len(report.Cycles))
	}
	return nil
}

var (
	flagCycles     bool
	flagOrder      bool
	flagDependents string
	flagChain      []string
	flagExport     string
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Scan the tree and query the dependency graph",
	Long:  "Without flags, prints every module with its dependencies.",
	Args:  cobra.NoArgs,
	RunE:  runGraph,
}

func init() {
	graphCmd.Flags().BoolVar(&flagCycles, "cycles", false, "print import cycles")
	graphCmd.Flags().BoolVar(&flagOrder, "order", false, "print modules in dependency order")
	graphCmd.Flags().StringVar(&flagDependents, "dependents", "", "print every module that transitively imports `path`")
	graphCmd.Flags().StringSliceVar(&flagChain, "chain", nil, "print the shortest import chain between two modules: --chain from,to")
	graphCmd.Flags().StringVar(&flagExport, "export", "", "render the whole graph for other tools: dot|mermaid|tsv")
	graphCmd.MarkFlagsMutuallyExclusive("cycles", "order", "dependents", "chain", "export")
}

func runGraph(cmd *cobra.Command, args []string) error {
	export, err := exporter(flagExport)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.app.Scan(ctx); err != nil {
		return err
	}
	g := s.app.Graph()
	root := s.app.Root()
	out := cmd.OutOrStdout()

	switch {
	case export != nil:
		return export(out, root, g)
	case flagCycles:
		return writeCycles(out, flagFormat, root, g.DetectCircularDependencies().Cycles)
	case flagOrder:
		order, err := g.TopologicalOrder()
		if err != nil {
			return err
		}
		return writePaths(out, flagFormat, root, order)
	case flagDependents != "":
		target, err := filepath.Abs(flagDependents)
		if err != nil {
			return err
		}
		if !g.HasModule(target) {
			return errors.AddContext(errors.New(errors.CodeNotFound, "module not in graph"), errors.CtxPath, target)
		}
		return writePaths(out, flagFormat, root, g.TransitiveDependents(target))
	case len(flagChain) > 0:
		if len(flagChain) != 2 {
			return errors.New(errors.CodeValidationError, "--chain takes exactly two paths")
		}
		from, err := filepath.Abs(flagChain[0])
		if err != nil {
			return err
		}
		to, err := filepath.Abs(flagChain[1])
		if err != nil {
			return err
		}
		chain, ok := g.FindImportChain(from, to)
		if !ok {
			return errors.New(errors.CodeNotFound, fmt.Sprintf("no import chain from %s to %s", flagChain[0], flagChain[1]))
		}
		return writePaths(out, flagFormat, root, chain)
	default:
		return writeAdjacency(out, flagFormat, root, g)
	}
}

func exporter(name string) (func(io.Writer, string, *graph.Graph) error, error) {
	switch name {
	case "":
		return nil, nil
	case "dot":
		return formats.WriteDOT, nil
	case "mermaid":
		return formats.WriteMermaid, nil
	case "tsv":
		return formats.WriteTSV, nil
	}
	return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("unknown export %q, want dot, mermaid or tsv", name))
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scan once, then keep the graph current as files change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		out := cmd.OutOrStdout()
		s, err := openSession(ctx, app.WithUpdateHandler(func(u app.Update) {
			writeUpdate(out, flagFormat, u)
		}))
		if err != nil {
			return err
		}
		defer s.Close()

		report, err := s.app.Scan(ctx)
		if err != nil {
			return err
		}
		if err := writeScanReport(out, flagFormat, report); err != nil {
			return err
		}
		return s.app.Watch(ctx)
	},
}

var flagLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded scans for the root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := history.Open(historyPath(cfg), cfg.History.BusyTimeout)
		if err != nil {
			return err
		}
		defer store.Close()

		root, err := filepath.Abs(cfg.Scan.Root)
		if err != nil {
			return err
		}
		snaps, err := store.LoadSnapshots(filepath.Clean(root), flagLimit)
		if err != nil {
			return err
		}
		return writeSnapshots(cmd.OutOrStdout(), flagFormat, snaps)
	},
}

func init() {
	historyCmd.Flags().IntVar(&flagLimit, "limit", 20, "maximum number of scans to list; 0 lists all")
}
