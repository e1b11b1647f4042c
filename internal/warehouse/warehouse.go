package warehouse

import (
	"context"
	"fmt"
	"log/slog"

	"auctionload/internal/config"
	"auctionload/internal/services"
	"auctionload/internal/source"
)

// ColumnType is the logical type of a warehouse column.
type ColumnType string

const (
	TypeString    ColumnType = "STRING"
	TypeTimestamp ColumnType = "TIMESTAMP"
	TypeFloat     ColumnType = "FLOAT"
)

// Column is one schema field.
type Column struct {
	Name string
	Type ColumnType
}

// Schema is an ordered column list matching the CSV column order.
type Schema []Column

// AuctionSchema is the table layout for filtered Auction Insights rows.
// It follows the seven row columns; the older eight-field layout with a
// keyword column never matched the rows it was loaded from.
func AuctionSchema() Schema {
	return Schema{
		{Name: "account", Type: TypeString},
		{Name: "domain", Type: TypeString},
		{Name: "date", Type: TypeTimestamp},
		{Name: "search_impr_share", Type: TypeFloat},
		{Name: "top_of_page_rate", Type: TypeFloat},
		{Name: "abs_top_of_page_rate", Type: TypeFloat},
		{Name: "position_above_rate", Type: TypeFloat},
	}
}

// LoadResult describes a finished load.
type LoadResult struct {
	JobID string
	Rows  int64
}

// Warehouse is the destination of filtered exports.
type Warehouse interface {
	// CreateTable creates table with schema. An existing table is not an error.
	CreateTable(ctx context.Context, table string, schema Schema) error
	// Load appends the CSV content of f to table and waits for completion.
	Load(ctx context.Context, table string, f source.File, content string) (LoadResult, error)
	// Check verifies the warehouse is reachable.
	Check(ctx context.Context) error
	Describe() string
	Close() error
}

// Open builds the warehouse configured in cfg.
func Open(ctx context.Context, cfg config.Warehouse, logger *slog.Logger) (Warehouse, error) {
	switch cfg.Kind {
	case config.WarehouseBigQuery:
		return NewBigQuery(ctx, BigQueryOptions{
			ProjectID:       cfg.ProjectID,
			DatasetID:       cfg.DatasetID,
			Location:        cfg.Location,
			CredentialsFile: cfg.CredentialsFile,
		}, logger)
	case config.WarehouseSQLite:
		return OpenSQLite(cfg.SQLitePath, logger)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "warehouse", "open", fmt.Sprintf("unsupported kind %q", cfg.Kind), nil)
	}
}

// TableName joins prefix and the run date, e.g. AU_IS_20240101.
func TableName(prefix, date string) string {
	return prefix + date
}
