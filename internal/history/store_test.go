package history_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"strmhook/internal/history"
	"strmhook/internal/testsupport"
)

func TestRecordAndRecent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	first := history.Run{
		ID: "run-1", Mode: history.ModeDirectory, Target: "/115/电影",
		Processed: 3, Created: 2, Skipped: 1, Status: history.StatusOK,
		StartedAt: started, Duration: 1500 * time.Millisecond,
	}
	second := history.Run{
		ID: "run-2", Mode: history.ModeDirect, Processed: 1, Failed: 1,
		Status: history.StatusFailed, Error: "write error", StartedAt: started.Add(time.Minute),
	}
	for _, run := range []history.Run{first, second} {
		if err := store.Record(ctx, run); err != nil {
			t.Fatalf("Record %s: %v", run.ID, err)
		}
	}

	runs, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-2" || runs[1].ID != "run-1" {
		t.Fatalf("expected newest first, got %s then %s", runs[0].ID, runs[1].ID)
	}
	got := runs[1]
	if got.Target != "/115/电影" || got.Created != 2 || got.Skipped != 1 || got.Processed != 3 {
		t.Fatalf("unexpected run counters: %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Fatalf("unexpected started_at: %s", got.StartedAt)
	}
	if got.Duration != 1500*time.Millisecond {
		t.Fatalf("unexpected duration: %s", got.Duration)
	}
	if runs[0].Error != "write error" || runs[0].Status != history.StatusFailed {
		t.Fatalf("unexpected failed run: %+v", runs[0])
	}

	limited, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent limited: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "run-2" {
		t.Fatalf("unexpected limited runs: %+v", limited)
	}
}

func TestRecordRequiresID(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	if err := store.Record(context.Background(), history.Run{Mode: history.ModeCLI}); err == nil {
		t.Fatal("expected error for run without id")
	}
}

func TestRetentionPrunesOldestRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := history.OpenPath(dbPath, 3)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		run := history.Run{ID: fmt.Sprintf("run-%d", i), Mode: history.ModeCLI, Status: history.StatusOK}
		if err := store.Record(ctx, run); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 runs after pruning, got %d", count)
	}
	runs, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if runs[0].ID != "run-5" || runs[2].ID != "run-3" {
		t.Fatalf("expected newest runs kept, got %+v", runs)
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "history.db")
	store, err := history.OpenPath(dbPath, 0)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if err := store.Record(context.Background(), history.Run{ID: "keep", Mode: history.ModeCLI, Status: history.StatusOK}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := history.OpenPath(dbPath, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { reopened.Close() })
	runs, err := reopened.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "keep" {
		t.Fatalf("unexpected runs after reopen: %+v", runs)
	}
}

func TestOpenRejectsUnknownLayout(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 7"); err != nil {
		t.Fatalf("stamp: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := history.OpenPath(dbPath, 0); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
