package config

import (
	"slices"
	"time"
)

const DefaultFile = "driftscan.toml"

type Config struct {
	Version       int                 `toml:"version"`
	Scan          Scan                `toml:"scan"`
	Cache         Cache               `toml:"cache"`
	Parser        Parser              `toml:"parser"`
	Languages     map[string]Language `toml:"languages"`
	Watch         Watch               `toml:"watch"`
	History       History             `toml:"history"`
	Observability Observability       `toml:"observability"`
}

type Scan struct {
	Root               string   `toml:"root"`
	Ignore             []string `toml:"ignore"`
	RespectGitignore   *bool    `toml:"respect_gitignore"`
	RespectDriftignore *bool    `toml:"respect_driftignore"`
	DefaultIgnores     *bool    `toml:"default_ignores"`
	FollowSymlinks     bool     `toml:"follow_symlinks"`
	MaxDepth           int      `toml:"max_depth"`
	Extensions         []string `toml:"extensions"`
	ComputeHashes      *bool    `toml:"compute_hashes"`
	// Workers bounds concurrent directory visits; ParseWorkers bounds
	// concurrent file parses. Zero uses GOMAXPROCS.
	Workers      int `toml:"workers"`
	ParseWorkers int `toml:"parse_workers"`
	// MaxFileSize skips larger files at parse time. Zero disables the limit.
	MaxFileSize int64 `toml:"max_file_size"`
}

type Cache struct {
	Size int           `toml:"size"`
	TTL  time.Duration `toml:"ttl"`
}

type Parser struct {
	Incremental          *bool `toml:"incremental"`
	IncrementalThreshold int   `toml:"incremental_threshold"`
	VerifyIncremental    bool  `toml:"verify_incremental"`
}

type Language struct {
	Enabled *bool `toml:"enabled"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	// RateLimit is the number of changed files processed per second.
	RateLimit    float64  `toml:"rate_limit"`
	Burst        int      `toml:"burst"`
	ExcludeDirs  []string `toml:"exclude_dirs"`
	ExcludeFiles []string `toml:"exclude_files"`
}

type History struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
	// Retain keeps at most this many snapshots per root. Zero keeps all.
	Retain int `toml:"retain"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Port          int    `toml:"port"`
	EnableMetrics bool   `toml:"enable_metrics"`
	EnableTracing bool   `toml:"enable_tracing"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// EnabledLanguages filters known down to the languages not disabled in the
// [languages] table.
func (c *Config) EnabledLanguages(known []string) []string {
	out := make([]string, 0, len(known))
	for _, name := range known {
		if lang, ok := c.Languages[name]; ok && lang.Enabled != nil && !*lang.Enabled {
			continue
		}
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func boolValue(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func (s Scan) GitignoreEnabled() bool   { return boolValue(s.RespectGitignore, true) }
func (s Scan) DriftignoreEnabled() bool { return boolValue(s.RespectDriftignore, true) }
func (s Scan) DefaultIgnoresEnabled() bool {
	return boolValue(s.DefaultIgnores, true)
}
func (s Scan) HashesEnabled() bool { return boolValue(s.ComputeHashes, true) }

func (p Parser) IncrementalEnabled() bool { return boolValue(p.Incremental, true) }
