package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: DRIFTSCAN_[SECTION]_[KEY] (e.g., DRIFTSCAN_WATCH_DEBOUNCE).
func ApplyEnvOverrides(cfg *Config) {
	// Scan
	setEnvString(&cfg.Scan.Root, "DRIFTSCAN_SCAN_ROOT")
	setEnvList(&cfg.Scan.Ignore, "DRIFTSCAN_SCAN_IGNORE")
	setEnvList(&cfg.Scan.Extensions, "DRIFTSCAN_SCAN_EXTENSIONS")
	setEnvBoolPtr(&cfg.Scan.RespectGitignore, "DRIFTSCAN_SCAN_RESPECT_GITIGNORE")
	setEnvBool(&cfg.Scan.FollowSymlinks, "DRIFTSCAN_SCAN_FOLLOW_SYMLINKS")
	setEnvInt(&cfg.Scan.MaxDepth, "DRIFTSCAN_SCAN_MAX_DEPTH")
	setEnvInt(&cfg.Scan.Workers, "DRIFTSCAN_SCAN_WORKERS")
	setEnvInt(&cfg.Scan.ParseWorkers, "DRIFTSCAN_SCAN_PARSE_WORKERS")

	// Cache
	setEnvInt(&cfg.Cache.Size, "DRIFTSCAN_CACHE_SIZE")
	setEnvDuration(&cfg.Cache.TTL, "DRIFTSCAN_CACHE_TTL")

	// Parser
	setEnvBoolPtr(&cfg.Parser.Incremental, "DRIFTSCAN_PARSER_INCREMENTAL")
	setEnvInt(&cfg.Parser.IncrementalThreshold, "DRIFTSCAN_PARSER_INCREMENTAL_THRESHOLD")
	setEnvBool(&cfg.Parser.VerifyIncremental, "DRIFTSCAN_PARSER_VERIFY_INCREMENTAL")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "DRIFTSCAN_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.RateLimit, "DRIFTSCAN_WATCH_RATE_LIMIT")
	setEnvInt(&cfg.Watch.Burst, "DRIFTSCAN_WATCH_BURST")

	// History
	setEnvBool(&cfg.History.Enabled, "DRIFTSCAN_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "DRIFTSCAN_HISTORY_PATH")
	setEnvDuration(&cfg.History.BusyTimeout, "DRIFTSCAN_HISTORY_BUSY_TIMEOUT")
	setEnvInt(&cfg.History.Retain, "DRIFTSCAN_HISTORY_RETAIN")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "DRIFTSCAN_OBSERVABILITY_ENABLED")
	setEnvInt(&cfg.Observability.Port, "DRIFTSCAN_OBSERVABILITY_PORT")
	setEnvString(&cfg.Observability.OTLPEndpoint, "DRIFTSCAN_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "DRIFTSCAN_OBSERVABILITY_ENABLE_TRACING")
	setEnvBool(&cfg.Observability.EnableMetrics, "DRIFTSCAN_OBSERVABILITY_ENABLE_METRICS")
}

func logOverride(key, val string) {
	slog.Debug("applying env override", "key", key, "value", val)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		logOverride(key, val)
		*target = val
	}
}

// setEnvList splits a comma-separated value.
func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		logOverride(key, val)
		*target = trimAll(strings.Split(val, ","))
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			logOverride(key, val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			logOverride(key, val)
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			logOverride(key, val)
			*target = &b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			logOverride(key, val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			logOverride(key, val)
			*target = d
		}
	}
}
