package transform

import (
	"fmt"
	"log/slog"

	"auctionload/internal/logging"
)

// Result is the outcome of Apply for one export.
type Result struct {
	// Output is the serialized CSV, empty when no row survived.
	Output string
	// Rows holds the formatted rows in output order.
	Rows []Row

	RowsParsed   int
	KeysSeen     int
	KeysRetained []string
	RowsWritten  int
	RowsDropped  int
}

// Empty reports whether no row made it to the output.
func (r Result) Empty() bool {
	return r.RowsWritten == 0
}

// Apply runs the full pipeline over one export. Output rows are grouped by
// retained key in first-seen order, keeping input order within a key. Rows
// that fail formatting are logged and dropped. A CSV syntax error stops
// parsing at the bad record and keeps what was read before it.
func Apply(text string, opts Options, logger *slog.Logger) (Result, error) {
	opts = opts.normalized()
	if logger == nil {
		logger = logging.NewNop()
	}

	rows, parseErr := Parse(text, opts.HeaderLines)
	if parseErr != nil {
		logging.WarnWithContext(logger, "csv parse stopped early", "csv_parse_truncated",
			logging.Error(parseErr),
			logging.Int("rows_parsed", len(rows)),
			logging.String(logging.FieldErrorHint, "inspect the export for unbalanced quotes"),
			logging.String(logging.FieldImpact, "rows after the bad record are ignored"),
		)
	}

	counts := CountKeys(rows, opts.KeyColumn)
	retained := RetainedKeys(counts, opts.Threshold)
	result := Result{
		RowsParsed:   len(rows),
		KeysSeen:     len(counts),
		KeysRetained: retained,
	}

	byKey := make(map[string][]int, len(retained))
	for _, key := range retained {
		byKey[key] = nil
	}
	for i, row := range rows {
		key := ""
		if opts.KeyColumn < len(row) {
			key = row[opts.KeyColumn]
		}
		if _, ok := byKey[key]; ok {
			byKey[key] = append(byKey[key], i)
		}
	}

	for _, key := range retained {
		for _, idx := range byKey[key] {
			row := rows[idx].Clone()
			if err := FormatRow(row); err != nil {
				result.RowsDropped++
				logger.Debug("row dropped",
					logging.Int("record", idx+1),
					logging.String("key", key),
					logging.Error(err),
					logging.String(logging.FieldEventType, "row_dropped"),
				)
				continue
			}
			result.Rows = append(result.Rows, row)
		}
	}
	result.RowsWritten = len(result.Rows)
	if result.RowsDropped > 0 {
		logging.WarnWithContext(logger, "rows dropped during formatting", "rows_dropped",
			logging.Int("rows_dropped", result.RowsDropped),
			logging.String(logging.FieldErrorHint, "run with --log-level debug to see each dropped row"),
			logging.String(logging.FieldImpact, "dropped rows are not loaded"),
		)
	}

	output, err := Serialize(result.Rows)
	if err != nil {
		return result, fmt.Errorf("serialize output: %w", err)
	}
	result.Output = output
	return result, nil
}
