package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"auctionload/internal/config"
	"auctionload/internal/logging"
	"auctionload/internal/services"
	"auctionload/internal/source"
	"auctionload/internal/transform"
)

const loadJobsTable = `CREATE TABLE IF NOT EXISTS load_jobs (
    id TEXT PRIMARY KEY,
    table_name TEXT NOT NULL,
    file_name TEXT NOT NULL,
    rows_loaded INTEGER NOT NULL,
    loaded_at TEXT NOT NULL
)`

// SQLite stores each daily table in a local database file.
type SQLite struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "warehouse", "open sqlite", "path is required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "warehouse", "open sqlite", "ensure directory", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "warehouse", "open sqlite", path, err)
	}
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout = 5000", loadJobsTable} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, services.Wrap(services.ErrExternal, "warehouse", "open sqlite", stmt, err)
		}
	}
	return &SQLite{
		db:     db,
		path:   path,
		logger: logging.NewComponentLogger(logger, "warehouse.sqlite"),
		now:    time.Now,
	}, nil
}

func (s *SQLite) Describe() string { return "sqlite:" + s.path }

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Check(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return services.Wrap(services.ErrExternal, "warehouse", "check", s.path, err)
	}
	return nil
}

func (s *SQLite) CreateTable(ctx context.Context, table string, schema Schema) error {
	if !config.ValidTableName(table) {
		return services.Wrap(services.ErrValidation, "warehouse", "create table", fmt.Sprintf("invalid table name %q", table), nil)
	}
	if len(schema) == 0 {
		return services.Wrap(services.ErrValidation, "warehouse", "create table", "schema is empty", nil)
	}
	cols := make([]string, 0, len(schema))
	for _, col := range schema {
		if !config.ValidTableName(col.Name) {
			return services.Wrap(services.ErrValidation, "warehouse", "create table", fmt.Sprintf("invalid column name %q", col.Name), nil)
		}
		cols = append(cols, quoteIdent(col.Name)+" "+sqliteType(col.Type))
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(table), strings.Join(cols, ", "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return services.Wrap(services.ErrExternal, "warehouse", "create table", table, err)
	}
	return nil
}

// Load inserts every CSV record of content into table inside one
// transaction. A record that does not fit the table rejects the whole load.
func (s *SQLite) Load(ctx context.Context, table string, f source.File, content string) (LoadResult, error) {
	if !config.ValidTableName(table) {
		return LoadResult{}, services.Wrap(services.ErrValidation, "warehouse", "load", fmt.Sprintf("invalid table name %q", table), nil)
	}
	schema, err := s.tableSchema(ctx, table)
	if err != nil {
		return LoadResult{}, err
	}
	rows, err := transform.Parse(content, 0)
	if err != nil {
		return LoadResult{}, services.Wrap(services.ErrValidation, "warehouse", "load", f.Name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return LoadResult{}, services.Wrap(services.ErrExternal, "warehouse", "load", "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(schema)), ", ")
	insert, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(table), placeholders))
	if err != nil {
		return LoadResult{}, services.Wrap(services.ErrExternal, "warehouse", "load", "prepare insert", err)
	}
	defer insert.Close()

	for i, row := range rows {
		args, err := rowArgs(schema, row)
		if err != nil {
			return LoadResult{}, services.Wrap(services.ErrValidation, "warehouse", "load",
				fmt.Sprintf("%s record %d", f.Name, i+1), err)
		}
		if _, err := insert.ExecContext(ctx, args...); err != nil {
			return LoadResult{}, services.Wrap(services.ErrExternal, "warehouse", "load", f.Name, err)
		}
	}

	jobID := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO load_jobs (id, table_name, file_name, rows_loaded, loaded_at) VALUES (?, ?, ?, ?, ?)",
		jobID, table, f.Name, len(rows), s.now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return LoadResult{}, services.Wrap(services.ErrExternal, "warehouse", "load", "record job", err)
	}
	if err := tx.Commit(); err != nil {
		return LoadResult{}, services.Wrap(services.ErrExternal, "warehouse", "load", "commit", err)
	}
	s.logger.Debug("rows inserted",
		logging.String("table", table),
		logging.Int("rows", len(rows)),
		logging.String("job_id", jobID),
	)
	return LoadResult{JobID: jobID, Rows: int64(len(rows))}, nil
}

// CountRows returns the number of rows stored in table.
func (s *SQLite) CountRows(ctx context.Context, table string) (int64, error) {
	if !config.ValidTableName(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(table)).Scan(&n)
	return n, err
}

func (s *SQLite) tableSchema(ctx context.Context, table string) (Schema, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "warehouse", "load", "inspect table", err)
	}
	defer rows.Close()
	var schema Schema
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, services.Wrap(services.ErrExternal, "warehouse", "load", "inspect table", err)
		}
		schema = append(schema, Column{Name: name, Type: columnTypeFromSQLite(typ)})
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrExternal, "warehouse", "load", "inspect table", err)
	}
	if len(schema) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "warehouse", "load", "table "+table, nil)
	}
	return schema, nil
}

func rowArgs(schema Schema, row transform.Row) ([]any, error) {
	if len(row) != len(schema) {
		return nil, fmt.Errorf("got %d fields, want %d", len(row), len(schema))
	}
	args := make([]any, len(row))
	for i, col := range schema {
		value := strings.TrimSpace(row[i])
		if value == "" {
			args[i] = nil
			continue
		}
		switch col.Type {
		case TypeFloat:
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col.Name, err)
			}
			args[i] = f
		case TypeTimestamp:
			ts, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col.Name, err)
			}
			args[i] = ts.UTC().Format(time.RFC3339)
		default:
			args[i] = row[i]
		}
	}
	return args, nil
}

func sqliteType(t ColumnType) string {
	switch t {
	case TypeFloat:
		return "REAL"
	case TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func columnTypeFromSQLite(t string) ColumnType {
	switch strings.ToUpper(t) {
	case "REAL":
		return TypeFloat
	case "TIMESTAMP":
		return TypeTimestamp
	default:
		return TypeString
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
