package warehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"auctionload/internal/config"
	"auctionload/internal/logging"
	"auctionload/internal/services"
	"auctionload/internal/source"
)

// BigQueryOptions configures the BigQuery backend.
type BigQueryOptions struct {
	ProjectID       string
	DatasetID       string
	Location        string
	CredentialsFile string
	ClientOptions   []option.ClientOption
}

// BigQuery loads into tables of one dataset.
type BigQuery struct {
	client   *bigquery.Client
	dataset  *bigquery.Dataset
	project  string
	location string
	logger   *slog.Logger
}

// NewBigQuery opens a client for the configured project and dataset.
func NewBigQuery(ctx context.Context, opts BigQueryOptions, logger *slog.Logger) (*BigQuery, error) {
	if strings.TrimSpace(opts.ProjectID) == "" || strings.TrimSpace(opts.DatasetID) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "warehouse", "open bigquery", "project and dataset are required", nil)
	}
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	client, err := bigquery.NewClient(ctx, opts.ProjectID, clientOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "warehouse", "open bigquery", "create client", err)
	}
	if opts.Location != "" {
		client.Location = opts.Location
	}
	return &BigQuery{
		client:   client,
		dataset:  client.Dataset(opts.DatasetID),
		project:  opts.ProjectID,
		location: opts.Location,
		logger:   logging.NewComponentLogger(logger, "warehouse.bigquery"),
	}, nil
}

func (b *BigQuery) Describe() string {
	return "bigquery:" + b.project + "." + b.dataset.DatasetID
}

func (b *BigQuery) Close() error { return b.client.Close() }

// Check fetches the dataset metadata.
func (b *BigQuery) Check(ctx context.Context) error {
	if _, err := b.dataset.Metadata(ctx); err != nil {
		return wrapBigQueryError("check", b.dataset.DatasetID, err)
	}
	return nil
}

func (b *BigQuery) CreateTable(ctx context.Context, table string, schema Schema) error {
	if !config.ValidTableName(table) {
		return services.Wrap(services.ErrValidation, "warehouse", "create table", fmt.Sprintf("invalid table name %q", table), nil)
	}
	err := b.dataset.Table(table).Create(ctx, &bigquery.TableMetadata{
		Schema:      bigQuerySchema(schema),
		Description: "Auction Insights rows loaded by auctionload",
	})
	if isAlreadyExists(err) {
		b.logger.Debug("table exists", logging.String("table", table))
		return nil
	}
	if err != nil {
		return wrapBigQueryError("create table", table, err)
	}
	b.logger.Info("table created",
		logging.String("table", table),
		logging.String(logging.FieldEventType, "table_created"),
	)
	return nil
}

// Load submits a CSV load job reading from content and waits for it.
// The content carries no header row.
func (b *BigQuery) Load(ctx context.Context, table string, f source.File, content string) (LoadResult, error) {
	src := bigquery.NewReaderSource(strings.NewReader(content))
	src.SourceFormat = bigquery.CSV
	src.SkipLeadingRows = 0
	src.AllowQuotedNewlines = true

	loader := b.dataset.Table(table).LoaderFrom(src)
	loader.WriteDisposition = bigquery.WriteAppend
	loader.CreateDisposition = bigquery.CreateNever
	loader.Labels = map[string]string{"loaded_by": "auctionload"}
	if b.location != "" {
		loader.Location = b.location
	}

	job, err := loader.Run(ctx)
	if err != nil {
		return LoadResult{}, wrapBigQueryError("submit load", f.Name, err)
	}
	result := LoadResult{JobID: job.ID()}
	b.logger.Debug("load job submitted",
		logging.String("job_id", result.JobID),
		logging.String("table", table),
	)

	status, err := job.Wait(ctx)
	if err != nil {
		return result, wrapBigQueryError("wait load", f.Name, err)
	}
	if err := status.Err(); err != nil {
		return result, services.Wrap(services.ErrValidation, "warehouse", "load", f.Name, err)
	}
	if stats, ok := status.Statistics.Details.(*bigquery.LoadStatistics); ok && stats != nil {
		result.Rows = stats.OutputRows
	}
	return result, nil
}

func bigQuerySchema(schema Schema) bigquery.Schema {
	out := make(bigquery.Schema, 0, len(schema))
	for _, col := range schema {
		field := &bigquery.FieldSchema{Name: col.Name}
		switch col.Type {
		case TypeTimestamp:
			field.Type = bigquery.TimestampFieldType
		case TypeFloat:
			field.Type = bigquery.FloatFieldType
		default:
			field.Type = bigquery.StringFieldType
		}
		out = append(out, field)
	}
	return out
}

func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}

func wrapBigQueryError(op, subject string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusNotFound:
			return services.Wrap(services.ErrNotFound, "warehouse", op, subject, err)
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, "warehouse", op, subject, err)
		case apiErr.Code == http.StatusBadRequest:
			return services.Wrap(services.ErrValidation, "warehouse", op, subject, err)
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
			return services.Wrap(services.ErrTransient, "warehouse", op, subject, err)
		}
	}
	return services.Wrap(services.ErrExternal, "warehouse", op, subject, err)
}
