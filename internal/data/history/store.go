package history

import (
	"database/sql"
	"driftscan/internal/core/errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
	// timeLayout is fixed-width so ts_utc sorts chronologically as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// Store is an append-only log of scan outcomes backed by sqlite.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, errors.New(errors.CodeValidationError, "history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, errors.AddContext(errors.New(errors.CodeValidationError, "history path is a directory, expected file"), errors.CtxPath, cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "create history directory"), errors.CtxPath, dir)
		}
	}

	if busyTimeout <= 0 {
		busyTimeout = 2 * time.Second
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "open sqlite history"), errors.CtxPath, cleanPath)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "ping sqlite history"), errors.CtxPath, cleanPath)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "initialize history schema"), errors.CtxPath, cleanPath)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SaveSnapshot inserts snap, assigning an id and timestamp when unset.
// Saving the same id twice replaces the earlier row.
func (s *Store) SaveSnapshot(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(snap.Root) == "" {
		return errors.New(errors.CodeValidationError, "snapshot root must not be empty")
	}
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}

	query := `
INSERT INTO scans (
  id, root, ts_utc, file_count, parsed_count, parse_failures, error_count,
  module_count, edge_count, cycle_count, cache_hit_rate, duration_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  root=excluded.root,
  ts_utc=excluded.ts_utc,
  file_count=excluded.file_count,
  parsed_count=excluded.parsed_count,
  parse_failures=excluded.parse_failures,
  error_count=excluded.error_count,
  module_count=excluded.module_count,
  edge_count=excluded.edge_count,
  cycle_count=excluded.cycle_count,
  cache_hit_rate=excluded.cache_hit_rate,
  duration_ms=excluded.duration_ms
`
	return s.withRetry("save snapshot", func() error {
		_, err := s.db.Exec(
			query,
			snap.ID,
			snap.Root,
			snap.Timestamp.UTC().Format(timeLayout),
			snap.FileCount,
			snap.ParsedCount,
			snap.ParseFailures,
			snap.ErrorCount,
			snap.ModuleCount,
			snap.EdgeCount,
			snap.CycleCount,
			snap.CacheHitRate,
			snap.Duration.Milliseconds(),
		)
		return err
	})
}

// LoadSnapshots returns the snapshots recorded for root, newest first.
// A limit <= 0 returns all of them.
func (s *Store) LoadSnapshots(root string, limit int) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT
  id, root, ts_utc, file_count, parsed_count, parse_failures, error_count,
  module_count, edge_count, cycle_count, cache_hit_rate, duration_ms
FROM scans
WHERE root = ?
ORDER BY ts_utc DESC, id ASC
`
	args := []any{root}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows *sql.Rows
	err := s.withRetry("load snapshots", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0)
	for rows.Next() {
		var (
			tsRaw      string
			durationMS int64
			snap       Snapshot
		)
		if err := rows.Scan(
			&snap.ID,
			&snap.Root,
			&tsRaw,
			&snap.FileCount,
			&snap.ParsedCount,
			&snap.ParseFailures,
			&snap.ErrorCount,
			&snap.ModuleCount,
			&snap.EdgeCount,
			&snap.CycleCount,
			&snap.CacheHitRate,
			&durationMS,
		); err != nil {
			return nil, errors.Wrap(err, errors.CodeIO, "scan snapshot row")
		}

		ts, err := time.Parse(timeLayout, tsRaw)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeIO, fmt.Sprintf("parse snapshot timestamp %q", tsRaw))
		}
		snap.Timestamp = ts.UTC()
		snap.Duration = time.Duration(durationMS) * time.Millisecond
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "iterate snapshot rows")
	}

	return snapshots, nil
}

// Prune deletes all but the newest retain snapshots of root and reports how
// many rows were removed.
func (s *Store) Prune(root string, retain int) (int64, error) {
	if retain <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	err := s.withRetry("prune snapshots", func() error {
		res, err := s.db.Exec(`
DELETE FROM scans
WHERE root = ? AND id NOT IN (
  SELECT id FROM scans WHERE root = ? ORDER BY ts_utc DESC, id ASC LIMIT ?
)`, root, root, retain)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return errors.AddContext(errors.Wrap(lastErr, errors.CodeIO, op), errors.CtxOperation, op)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
