package main

import (
	"context"
	"driftscan/internal/core/app"
	"driftscan/internal/core/config"
	"driftscan/internal/core/errors"
	"driftscan/internal/data/history"
	"driftscan/internal/shared/observability"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var (
	flagConfig  string
	flagRoot    string
	flagFormat  string
	flagVerbose bool
	flagHistory bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(errors.ExitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:           "driftscan",
	Short:         "Incremental source scanner and module dependency graph",
	Long:          "driftscan walks a source tree, parses every supported file with tree-sitter, resolves imports into a dependency graph and reports import cycles.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configureLogging(flagVerbose)
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", config.DefaultFile, "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "directory to scan (overrides scan.root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: text|json")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagHistory, "history", false, "record scans in the history database")

	rootCmd.AddCommand(scanCmd, graphCmd, watchCmd, historyCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the driftscan version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "driftscan v%s\n", version)
	},
}

func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func validateFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	}
	return errors.New(errors.CodeValidationError, fmt.Sprintf("unknown format %q, want text or json", format))
}

// loadConfig reads the config file, applies environment overrides and the
// --root flag, and validates the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(flagConfig)
	if err != nil {
		return nil, err
	}
	config.ApplyEnvOverrides(cfg)
	if flagRoot != "" {
		cfg.Scan.Root = flagRoot
	}
	if flagHistory {
		cfg.History.Enabled = true
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is a configured app plus the optional services started for it.
type session struct {
	cfg      *config.Config
	app      *app.App
	shutdown []func(context.Context) error
}

func (s *session) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(s.shutdown) - 1; i >= 0; i-- {
		if err := s.shutdown[i](ctx); err != nil {
			slog.Warn("shutdown failed", "error", err)
		}
	}
	if err := s.app.Close(); err != nil {
		slog.Warn("close failed", "error", err)
	}
}

func openSession(ctx context.Context, opts ...app.Option) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg}

	if cfg.History.Enabled {
		store, err := history.Open(historyPath(cfg), cfg.History.BusyTimeout)
		if err != nil {
			return nil, err
		}
		opts = append(opts, app.WithHistory(store))
	}

	a, err := app.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	s.app = a

	obs := cfg.Observability
	if obs.Enabled && obs.EnableTracing {
		shutdown, err := observability.InitTracing(ctx, obs.OTLPEndpoint)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.shutdown = append(s.shutdown, shutdown)
	}
	if obs.Enabled && obs.EnableMetrics {
		srv := observability.NewServer(fmt.Sprintf(":%d", obs.Port), a.Health)
		if err := srv.Start(ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.shutdown = append(s.shutdown, srv.Stop)
	}
	return s, nil
}

// historyPath places a relative history path below the scan root.
func historyPath(cfg *config.Config) string {
	if filepath.IsAbs(cfg.History.Path) {
		return cfg.History.Path
	}
	return filepath.Join(cfg.Scan.Root, cfg.History.Path)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
