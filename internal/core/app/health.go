package app

import "context"

// Health reports component state for the metrics server's /health endpoint.
func (a *App) Health(_ context.Context) map[string]any {
	stats := a.parsers.Stats()
	components := map[string]any{
		"graph": map[string]int{
			"modules": a.graph.Size(),
			"edges":   a.graph.EdgeCount(),
		},
		"parser": map[string]any{
			"languages":          a.registry.Languages(),
			"tracked_files":      stats.TrackedFiles,
			"full_parses":        stats.FullParses,
			"incremental_parses": stats.IncrementalParses,
			"fallbacks":          stats.IncrementalFallbacks,
			"cache_hit_rate":     stats.Cache.HitRate,
		},
	}
	if a.history != nil {
		components["history"] = a.history.Path()
	}
	return components
}
