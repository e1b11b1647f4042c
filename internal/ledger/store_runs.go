package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const runColumns = "id, status, started_at, finished_at, files_total, files_loaded, files_failed, dry_run"

// BeginRun records the start of a run.
func (s *Store) BeginRun(ctx context.Context, id string, startedAt time.Time, dryRun bool) (*Run, error) {
	if id == "" {
		return nil, errors.New("run id is required")
	}
	startedAt = startedAt.UTC()
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, status, started_at, dry_run) VALUES (?, ?, ?, ?)`,
		id, StatusRunning, startedAt.Format(time.RFC3339Nano), boolToInt(dryRun),
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &Run{ID: id, Status: StatusRunning, StartedAt: startedAt, DryRun: dryRun}, nil
}

// FinishRun stores the final counters and status of a run.
func (s *Store) FinishRun(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is required")
	}
	if run.FinishedAt == nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, files_total = ?, files_loaded = ?, files_failed = ?
         WHERE id = ?`,
		run.Status, nullableTime(run.FinishedAt), run.FilesTotal, run.FilesLoaded, run.FilesFailed, run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run: %s not found", run.ID)
	}
	return nil
}

// GetRun fetches a run by identifier. It returns nil when no run matches.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// RecentRuns returns the newest runs first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+runColumns+" FROM runs ORDER BY rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id          string
		status      string
		startedRaw  string
		finishedRaw sql.NullString
		total       int
		loaded      int
		failed      int
		dryRun      int
	)
	if err := scanner.Scan(&id, &status, &startedRaw, &finishedRaw, &total, &loaded, &failed, &dryRun); err != nil {
		return nil, err
	}
	run := &Run{
		ID:          id,
		Status:      Status(status),
		FilesTotal:  total,
		FilesLoaded: loaded,
		FilesFailed: failed,
		DryRun:      dryRun != 0,
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}
