package config

import (
	"driftscan/internal/core/errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		code := errors.CodeIO
		if os.IsNotExist(err) {
			code = errors.CodeNotFound
		}
		return nil, errors.AddContext(errors.Wrap(err, code, "read config"), errors.CtxPath, path)
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode config"), errors.CtxPath, path)
	}
	for _, key := range meta.Undecoded() {
		slog.Warn("unknown config key", "path", path, "key", key.String())
	}

	applyDefaults(&cfg)
	normalize(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not
// exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.IsCode(err, errors.CodeNotFound) {
		slog.Debug("config file not found; using defaults", "path", path)
		return Default(), nil
	}
	return nil, err
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Scan.Root) == "" {
		cfg.Scan.Root = "."
	}

	if cfg.Cache.Size <= 0 {
		cfg.Cache.Size = 1000
	}

	if cfg.Parser.IncrementalThreshold == 0 {
		cfg.Parser.IncrementalThreshold = 4096
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.RateLimit == 0 {
		cfg.Watch.RateLimit = 50
	}
	if cfg.Watch.Burst <= 0 {
		cfg.Watch.Burst = 20
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = ".drift/history.db"
	}
	if cfg.History.BusyTimeout <= 0 {
		cfg.History.BusyTimeout = 5 * time.Second
	}

	if cfg.Observability.Port == 0 {
		cfg.Observability.Port = 9464
	}
}

func normalize(cfg *Config) {
	cfg.Scan.Root = strings.TrimSpace(cfg.Scan.Root)
	cfg.Scan.Ignore = trimAll(cfg.Scan.Ignore)
	cfg.Scan.Extensions = trimAll(cfg.Scan.Extensions)
	cfg.Watch.ExcludeDirs = trimAll(cfg.Watch.ExcludeDirs)
	cfg.Watch.ExcludeFiles = trimAll(cfg.Watch.ExcludeFiles)
	cfg.History.Path = strings.TrimSpace(cfg.History.Path)
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)

	if len(cfg.Languages) > 0 {
		langs := make(map[string]Language, len(cfg.Languages))
		for name, lang := range cfg.Languages {
			langs[strings.ToLower(strings.TrimSpace(name))] = lang
		}
		cfg.Languages = langs
	}
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Save writes cfg as TOML with owner-only permissions.
func Save(cfg *Config, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fs.FileMode(0o600))
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeIO, "create config"), errors.CtxPath, path)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeIO, "encode config"), errors.CtxPath, path)
	}
	return nil
}
