package config

import (
	"driftscan/internal/core/errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
version = 1

[scan]
root = "./src"
ignore = ["*.gen.go", " build/ "]
respect_gitignore = false
max_depth = 4
extensions = ["go", ".ts"]

[cache]
size = 64
ttl = "10m"

[parser]
incremental = false
incremental_threshold = 128
verify_incremental = true

[languages.Rust]
enabled = false

[watch]
debounce = "1s"
rate_limit = 5.5
exclude_dirs = ["vendor"]

[history]
enabled = true
retain = 10
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Scan.Root != "./src" {
		t.Errorf("root = %q", cfg.Scan.Root)
	}
	if !reflect.DeepEqual(cfg.Scan.Ignore, []string{"*.gen.go", "build/"}) {
		t.Errorf("ignore = %v", cfg.Scan.Ignore)
	}
	if cfg.Scan.GitignoreEnabled() {
		t.Error("expected gitignore disabled")
	}
	if !cfg.Scan.DriftignoreEnabled() || !cfg.Scan.DefaultIgnoresEnabled() {
		t.Error("unset booleans should default to true")
	}
	if cfg.Scan.MaxDepth != 4 {
		t.Errorf("max_depth = %d", cfg.Scan.MaxDepth)
	}
	if cfg.Cache.Size != 64 || cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Parser.IncrementalEnabled() || cfg.Parser.IncrementalThreshold != 128 || !cfg.Parser.VerifyIncremental {
		t.Errorf("parser = %+v", cfg.Parser)
	}
	if cfg.Watch.Debounce != time.Second || cfg.Watch.RateLimit != 5.5 {
		t.Errorf("watch = %+v", cfg.Watch)
	}
	if cfg.Watch.Burst != 20 {
		t.Errorf("burst default = %d", cfg.Watch.Burst)
	}
	if !cfg.History.Enabled || cfg.History.Path != ".drift/history.db" || cfg.History.Retain != 10 {
		t.Errorf("history = %+v", cfg.History)
	}

	langs := cfg.EnabledLanguages([]string{"rust", "go", "css"})
	if !reflect.DeepEqual(langs, []string{"css", "go"}) {
		t.Errorf("enabled languages = %v", langs)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Scan.Root != "." || cfg.Cache.Size != 1000 || cfg.Parser.IncrementalThreshold != 4096 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Parser.IncrementalEnabled() || !cfg.Scan.HashesEnabled() {
		t.Error("incremental parsing and hashing should default on")
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("debounce = %s", cfg.Watch.Debounce)
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("version = %d", cfg.Version)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); !errors.IsCode(err, errors.CodeNotFound) {
		t.Errorf("Load missing file error = %v, want NOT_FOUND", err)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad toml", "[scan\nroot = 1", "decode config"},
		{"version", "version = 2", "unsupported config version"},
		{"depth", "[scan]\nmax_depth = -1", "scan.max_depth"},
		{"ttl", "[cache]\nttl = \"-1s\"", "cache.ttl"},
		{"threshold", "[parser]\nincremental_threshold = -5", "incremental_threshold"},
		{"rate", "[watch]\nrate_limit = -1.0", "watch.rate_limit"},
		{"exclude", "[watch]\nexclude_files = [\"[\"]", "malformed"},
		{"retain", "[history]\nretain = -1", "history.retain"},
		{"port", "[observability]\nenabled = true\nport = 70000", "observability.port"},
		{"otlp", "[observability]\nenabled = true\nenable_tracing = true", "otlp_endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsCode(err, errors.CodeValidationError) {
				t.Errorf("code = %s, want VALIDATION_ERROR", errors.CodeOf(err))
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DRIFTSCAN_SCAN_ROOT", "/srv/code")
	t.Setenv("DRIFTSCAN_SCAN_EXTENSIONS", "go, py ,")
	t.Setenv("DRIFTSCAN_PARSER_INCREMENTAL", "FALSE")
	t.Setenv("DRIFTSCAN_WATCH_DEBOUNCE", "250ms")
	t.Setenv("DRIFTSCAN_CACHE_SIZE", "not-a-number")
	t.Setenv("DRIFTSCAN_OBSERVABILITY_PORT", "9100")

	cfg := Default()
	ApplyEnvOverrides(cfg)

	if cfg.Scan.Root != "/srv/code" {
		t.Errorf("root = %q", cfg.Scan.Root)
	}
	if !reflect.DeepEqual(cfg.Scan.Extensions, []string{"go", "py"}) {
		t.Errorf("extensions = %v", cfg.Scan.Extensions)
	}
	if cfg.Parser.IncrementalEnabled() {
		t.Error("incremental should be disabled")
	}
	if cfg.Watch.Debounce != 250*time.Millisecond {
		t.Errorf("debounce = %s", cfg.Watch.Debounce)
	}
	if cfg.Cache.Size != 1000 {
		t.Errorf("malformed override should be ignored, size = %d", cfg.Cache.Size)
	}
	if cfg.Observability.Port != 9100 {
		t.Errorf("port = %d", cfg.Observability.Port)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	cfg := Default()
	cfg.Scan.Ignore = []string{"dist/"}
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(loaded.Scan.Ignore, []string{"dist/"}) || loaded.Cache.Size != cfg.Cache.Size {
		t.Errorf("round trip mismatch: %+v", loaded.Scan)
	}
}
