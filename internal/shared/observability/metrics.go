package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "driftscan_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language", "mode"})

	ParsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driftscan_parses_total",
		Help: "Total number of parses by mode (cached, full, incremental, fallback).",
	}, []string{"mode"})

	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driftscan_cache_hits_total",
		Help: "Total number of cache hits.",
	}, []string{"cache"})

	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driftscan_cache_misses_total",
		Help: "Total number of cache misses, including expired entries.",
	}, []string{"cache"})

	CacheEvictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driftscan_cache_evictions_total",
		Help: "Total number of entries evicted under capacity pressure.",
	}, []string{"cache"})

	CacheInvalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driftscan_cache_invalidations_total",
		Help: "Total number of entries removed by explicit invalidation.",
	}, []string{"cache"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "driftscan_graph_nodes_total",
		Help: "Total number of nodes in the dependency graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "driftscan_graph_edges_total",
		Help: "Total number of edges in the dependency graph.",
	})

	WalkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "driftscan_walk_seconds",
		Help:    "Wall-clock duration of a directory walk.",
		Buckets: prometheus.DefBuckets,
	})

	WalkFilesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftscan_walk_files_total",
		Help: "Total number of files reported by directory walks.",
	})

	WalkErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftscan_walk_errors_total",
		Help: "Total number of per-entry I/O errors recorded during walks.",
	})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "driftscan_analysis_seconds",
		Help:    "Time spent on high-level analysis tasks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftscan_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
