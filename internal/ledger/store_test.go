package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"auctionload/internal/ledger"
)

func openStore(t *testing.T) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "state", "ledger.db"))
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := ledger.Open("  "); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestRunLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	started := time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC)
	run, err := store.BeginRun(ctx, "run-1", started, false)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if run.Status != ledger.StatusRunning {
		t.Fatalf("unexpected status %q", run.Status)
	}

	run.Status = ledger.StatusCompleted
	run.FilesTotal = 3
	run.FilesLoaded = 2
	run.FilesFailed = 1
	if err := store.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	fetched, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected run")
	}
	if !fetched.StartedAt.Equal(started) {
		t.Fatalf("unexpected start %v", fetched.StartedAt)
	}
	if fetched.FinishedAt == nil {
		t.Fatal("expected finished timestamp")
	}
	if fetched.FilesTotal != 3 || fetched.FilesLoaded != 2 || fetched.FilesFailed != 1 {
		t.Fatalf("unexpected counters: %+v", fetched)
	}

	missing, err := store.GetRun(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil run for unknown id, got %v %v", missing, err)
	}
}

func TestFinishRunUnknownID(t *testing.T) {
	store := openStore(t)
	err := store.FinishRun(context.Background(), &ledger.Run{ID: "ghost", Status: ledger.StatusCompleted})
	if err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestRecordAndFindLoaded(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if _, err := store.BeginRun(ctx, "run-1", time.Now(), false); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	rec := &ledger.FileRecord{RunID: "run-1", SourceID: "file-a", SourceName: "a.csv", Checksum: "abc", SizeBytes: 42}
	if err := store.RecordFile(ctx, rec); err != nil {
		t.Fatalf("RecordFile: %v", err)
	}
	if rec.ID == 0 {
		t.Fatal("expected id assignment")
	}
	if rec.Status != ledger.StatusPending {
		t.Fatalf("expected pending default, got %q", rec.Status)
	}

	found, err := store.FindLoaded(ctx, "file-a", "abc")
	if err != nil {
		t.Fatalf("FindLoaded: %v", err)
	}
	if found != nil {
		t.Fatalf("pending record must not count as loaded: %+v", found)
	}

	rec.Status = ledger.StatusLoaded
	rec.RowsParsed = 150
	rec.RowsWritten = 100
	rec.OutputName = "__AU_20240102.csv"
	rec.TableName = "AU_IS_20240102"
	rec.JobID = "job-1"
	if err := store.UpdateFile(ctx, rec); err != nil {
		t.Fatalf("UpdateFile: %v", err)
	}

	found, err = store.FindLoaded(ctx, "file-a", "abc")
	if err != nil {
		t.Fatalf("FindLoaded: %v", err)
	}
	if found == nil || found.ID != rec.ID {
		t.Fatalf("expected loaded record, got %+v", found)
	}
	if found.OutputName != rec.OutputName || found.JobID != "job-1" || found.RowsWritten != 100 {
		t.Fatalf("unexpected round trip: %+v", found)
	}

	other, err := store.FindLoaded(ctx, "file-a", "different")
	if err != nil || other != nil {
		t.Fatalf("expected checksum mismatch to miss, got %+v %v", other, err)
	}

	files, err := store.FilesForRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("FilesForRun: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected one file, got %d", len(files))
	}
}

func TestRecordFileValidation(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.RecordFile(ctx, nil); err == nil {
		t.Fatal("expected error for nil record")
	}
	if err := store.RecordFile(ctx, &ledger.FileRecord{SourceID: "x"}); err == nil {
		t.Fatal("expected error for missing run id")
	}
	if err := store.UpdateFile(ctx, &ledger.FileRecord{}); err == nil {
		t.Fatal("expected error for record without id")
	}
}

func TestRecentOrdering(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	for _, id := range []string{"run-1", "run-2", "run-3"} {
		if _, err := store.BeginRun(ctx, id, time.Now(), false); err != nil {
			t.Fatalf("BeginRun: %v", err)
		}
		if err := store.RecordFile(ctx, &ledger.FileRecord{RunID: id, SourceID: id + "-file", SourceName: "x.csv"}); err != nil {
			t.Fatalf("RecordFile: %v", err)
		}
	}

	runs, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-3" || runs[1].ID != "run-2" {
		t.Fatalf("unexpected run order: %+v", runs)
	}

	files, err := store.RecentFiles(ctx, 0)
	if err != nil {
		t.Fatalf("RecentFiles: %v", err)
	}
	if len(files) != 3 || files[0].RunID != "run-3" {
		t.Fatalf("unexpected file order: %+v", files)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := ledger.Open(path); !errors.Is(err, ledger.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}
