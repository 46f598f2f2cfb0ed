package history

import (
	"database/sql"
	"driftscan/internal/core/errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	store, err := Open(path, time.Second)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestStore_SaveAndLoadNewestFirst(t *testing.T) {
	store, _ := openStore(t)

	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	for i, files := range []int{3, 5, 8} {
		snap := Snapshot{
			ID:           string(rune('a' + i)),
			Root:         "/repo",
			Timestamp:    base.Add(time.Duration(i) * time.Hour),
			FileCount:    files,
			ParsedCount:  files - 1,
			ModuleCount:  files - 1,
			EdgeCount:    files * 2,
			CycleCount:   i,
			CacheHitRate: 0.5,
			Duration:     1500 * time.Millisecond,
		}
		if err := store.SaveSnapshot(snap); err != nil {
			t.Fatalf("save snapshot %d: %v", i, err)
		}
	}

	got, err := store.LoadSnapshots("/repo", 2)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(got))
	}
	if got[0].ID != "c" || got[1].ID != "b" {
		t.Errorf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].FileCount != 8 || got[0].EdgeCount != 16 || got[0].CycleCount != 2 {
		t.Errorf("unexpected row: %+v", got[0])
	}
	if got[0].Duration != 1500*time.Millisecond || got[0].CacheHitRate != 0.5 {
		t.Errorf("unexpected duration/hit rate: %+v", got[0])
	}
	if !got[0].Timestamp.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("timestamp = %s", got[0].Timestamp)
	}
}

func TestStore_SaveAssignsIDAndReplacesDuplicates(t *testing.T) {
	store, _ := openStore(t)

	if err := store.SaveSnapshot(Snapshot{Root: "/repo", FileCount: 1}); err != nil {
		t.Fatal(err)
	}
	rows, err := store.LoadSnapshots("/repo", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].ID == "" || rows[0].Timestamp.IsZero() {
		t.Fatalf("expected generated id and timestamp, got %+v", rows)
	}

	dup := rows[0]
	dup.FileCount = 42
	if err := store.SaveSnapshot(dup); err != nil {
		t.Fatal(err)
	}
	rows, err = store.LoadSnapshots("/repo", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].FileCount != 42 {
		t.Fatalf("expected replaced row, got %+v", rows)
	}
}

func TestStore_RootIsolationAndPrune(t *testing.T) {
	store, _ := openStore(t)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		if err := store.SaveSnapshot(Snapshot{Root: "/a", Timestamp: base.Add(time.Duration(i) * time.Minute), FileCount: i}); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.SaveSnapshot(Snapshot{Root: "/b", Timestamp: base}); err != nil {
		t.Fatal(err)
	}

	removed, err := store.Prune("/a", 2)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	aRows, err := store.LoadSnapshots("/a", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(aRows) != 2 || aRows[0].FileCount != 3 || aRows[1].FileCount != 2 {
		t.Fatalf("unexpected /a rows after prune: %+v", aRows)
	}
	bRows, err := store.LoadSnapshots("/b", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(bRows) != 1 {
		t.Fatalf("prune touched another root: %+v", bRows)
	}
}

func TestStore_SaveRejectsEmptyRoot(t *testing.T) {
	store, _ := openStore(t)
	if err := store.SaveSnapshot(Snapshot{}); !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStore_OpenRejectsDirectoryPath(t *testing.T) {
	_, err := Open(t.TempDir(), 0)
	if err == nil {
		t.Fatal("expected open error for directory path")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStore_OpenCorruptDBPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	if err := os.WriteFile(path, []byte("this is not sqlite, only some text padding the header"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path, 0)
	if err == nil {
		t.Fatal("expected sqlite open error")
	}
	if !errors.IsCode(err, errors.CodeIO) {
		t.Fatalf("expected IO error, got: %v", err)
	}
}

func TestEnsureSchema_DetectsNewerVersionDrift(t *testing.T) {
	store, path := openStore(t)

	if _, err := store.db.Exec(`INSERT OR REPLACE INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open(driverName, "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = EnsureSchema(db)
	if err == nil {
		t.Fatal("expected drift error")
	}
	if !strings.Contains(err.Error(), "newer than supported") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	store, _ := openStore(t)
	if err := EnsureSchema(store.db); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != SchemaVersion {
		t.Errorf("migrations recorded = %d, want %d", count, SchemaVersion)
	}
}
