package config

import (
	"driftscan/internal/core/errors"
	"fmt"

	"github.com/gobwas/glob"
)

// Validate checks cfg after defaults were applied.
func Validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validateScan,
		validateCache,
		validateParser,
		validateWatch,
		validateHistory,
		validateObservability,
	} {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.New(errors.CodeValidationError, fmt.Sprintf(format, args...))
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return invalid("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateScan(cfg *Config) error {
	if cfg.Scan.Root == "" {
		return invalid("scan.root must not be empty")
	}
	if cfg.Scan.MaxDepth < 0 {
		return invalid("scan.max_depth must be >= 0, got %d", cfg.Scan.MaxDepth)
	}
	if cfg.Scan.Workers < 0 || cfg.Scan.ParseWorkers < 0 {
		return invalid("scan.workers and scan.parse_workers must be >= 0")
	}
	if cfg.Scan.MaxFileSize < 0 {
		return invalid("scan.max_file_size must be >= 0, got %d", cfg.Scan.MaxFileSize)
	}
	return nil
}

func validateCache(cfg *Config) error {
	if cfg.Cache.TTL < 0 {
		return invalid("cache.ttl must not be negative, got %s", cfg.Cache.TTL)
	}
	return nil
}

func validateParser(cfg *Config) error {
	if cfg.Parser.IncrementalThreshold < 0 {
		return invalid("parser.incremental_threshold must be >= 0, got %d", cfg.Parser.IncrementalThreshold)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return invalid("watch.debounce must not be negative, got %s", cfg.Watch.Debounce)
	}
	if cfg.Watch.RateLimit < 0 {
		return invalid("watch.rate_limit must be >= 0, got %v", cfg.Watch.RateLimit)
	}
	for _, pattern := range append(append([]string(nil), cfg.Watch.ExcludeDirs...), cfg.Watch.ExcludeFiles...) {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return invalid("watch exclude pattern %q is malformed", pattern)
		}
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if cfg.History.Enabled && cfg.History.Path == "" {
		return invalid("history.path must not be empty when history is enabled")
	}
	if cfg.History.Retain < 0 {
		return invalid("history.retain must be >= 0, got %d", cfg.History.Retain)
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if !cfg.Observability.Enabled {
		return nil
	}
	if cfg.Observability.Port < 1 || cfg.Observability.Port > 65535 {
		return invalid("observability.port must be between 1 and 65535, got %d", cfg.Observability.Port)
	}
	if cfg.Observability.EnableTracing && cfg.Observability.OTLPEndpoint == "" {
		return invalid("observability.otlp_endpoint is required when tracing is enabled")
	}
	return nil
}
