package history

import "time"

const SchemaVersion = 2

// Snapshot is the persisted outcome of one completed scan.
type Snapshot struct {
	ID            string
	Root          string
	Timestamp     time.Time
	FileCount     int
	ParsedCount   int
	ParseFailures int
	ErrorCount    int
	ModuleCount   int
	EdgeCount     int
	CycleCount    int
	CacheHitRate  float64
	Duration      time.Duration
}
