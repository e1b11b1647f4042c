package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const fileColumns = "id, run_id, source_id, source_name, checksum, size_bytes, status, rows_parsed, keys_retained, rows_written, rows_dropped, output_name, table_name, job_id, error_message, created_at, updated_at"

// RecordFile inserts a file record and assigns its ID.
func (s *Store) RecordFile(ctx context.Context, rec *FileRecord) error {
	if rec == nil {
		return errors.New("file record is required")
	}
	if rec.RunID == "" || rec.SourceID == "" {
		return errors.New("file record requires run id and source id")
	}
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	stamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(ctx,
		`INSERT INTO files (
            run_id, source_id, source_name, checksum, size_bytes, status,
            rows_parsed, keys_retained, rows_written, rows_dropped,
            output_name, table_name, job_id, error_message, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.SourceID, rec.SourceName, nullableString(rec.Checksum), rec.SizeBytes, rec.Status,
		rec.RowsParsed, rec.KeysRetained, rec.RowsWritten, rec.RowsDropped,
		nullableString(rec.OutputName), nullableString(rec.TableName), nullableString(rec.JobID),
		nullableString(rec.ErrorMessage), stamp, stamp,
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	rec.ID = id
	return nil
}

// UpdateFile persists the mutable fields of an existing record.
func (s *Store) UpdateFile(ctx context.Context, rec *FileRecord) error {
	if rec == nil || rec.ID == 0 {
		return errors.New("file record with id is required")
	}
	rec.UpdatedAt = time.Now().UTC()
	res, err := s.execWithRetry(ctx,
		`UPDATE files SET
            checksum = ?, size_bytes = ?, status = ?,
            rows_parsed = ?, keys_retained = ?, rows_written = ?, rows_dropped = ?,
            output_name = ?, table_name = ?, job_id = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(rec.Checksum), rec.SizeBytes, rec.Status,
		rec.RowsParsed, rec.KeysRetained, rec.RowsWritten, rec.RowsDropped,
		nullableString(rec.OutputName), nullableString(rec.TableName), nullableString(rec.JobID),
		nullableString(rec.ErrorMessage), rec.UpdatedAt.Format(time.RFC3339Nano), rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update file: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update file: id %d not found", rec.ID)
	}
	return nil
}

// FindLoaded returns the newest record that loaded (or deliberately skipped
// loading) the same source content. It returns nil when there is none.
func (s *Store) FindLoaded(ctx context.Context, sourceID, checksum string) (*FileRecord, error) {
	if sourceID == "" || checksum == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+fileColumns+` FROM files
         WHERE source_id = ? AND checksum = ? AND status IN (?, ?)
         ORDER BY id DESC LIMIT 1`,
		sourceID, checksum, StatusLoaded, StatusEmpty,
	)
	rec, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find loaded file: %w", err)
	}
	return rec, nil
}

// FilesForRun lists the records written during one run in insertion order.
func (s *Store) FilesForRun(ctx context.Context, runID string) ([]*FileRecord, error) {
	return s.queryFiles(ctx, "SELECT "+fileColumns+" FROM files WHERE run_id = ? ORDER BY id", runID)
}

// RecentFiles returns the newest file records first.
func (s *Store) RecentFiles(ctx context.Context, limit int) ([]*FileRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryFiles(ctx, "SELECT "+fileColumns+" FROM files ORDER BY id DESC LIMIT ?", limit)
}

func (s *Store) queryFiles(ctx context.Context, query string, args ...any) ([]*FileRecord, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var records []*FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanFile(scanner interface{ Scan(dest ...any) error }) (*FileRecord, error) {
	var (
		rec        FileRecord
		status     string
		checksum   sql.NullString
		outputName sql.NullString
		tableName  sql.NullString
		jobID      sql.NullString
		errMessage sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.RunID,
		&rec.SourceID,
		&rec.SourceName,
		&checksum,
		&rec.SizeBytes,
		&status,
		&rec.RowsParsed,
		&rec.KeysRetained,
		&rec.RowsWritten,
		&rec.RowsDropped,
		&outputName,
		&tableName,
		&jobID,
		&errMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	rec.Status = Status(status)
	rec.Checksum = checksum.String
	rec.OutputName = outputName.String
	rec.TableName = tableName.String
	rec.JobID = jobID.String
	rec.ErrorMessage = errMessage.String
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		rec.UpdatedAt = updated
	}
	return &rec, nil
}
