package transform

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ErrShortRow is returned by FormatRow for rows missing formatted columns.
var ErrShortRow = errors.New("row has too few columns")

// FormatRow normalizes the date and metric columns of row in place. On error
// the row may be partially modified and must be discarded.
func FormatRow(row Row) error {
	if len(row) < RowColumns {
		return fmt.Errorf("%w: got %d, want %d", ErrShortRow, len(row), RowColumns)
	}

	ts, err := parseDate(row[ColDate])
	if err != nil {
		return err
	}
	row[ColDate] = ts.Format(TimestampLayout)
	row[ColSearchImprShare] = strings.Replace(stripPercent(row[ColSearchImprShare]), "<10", "1", 1)
	row[ColTopOfPageRate] = stripPercent(row[ColTopOfPageRate])
	row[ColAbsTopOfPageRate] = stripPercent(row[ColAbsTopOfPageRate])
	row[ColPositionAboveRate] = strings.Replace(strings.TrimSpace(row[ColPositionAboveRate]), "--", "0", 1)
	return nil
}

func parseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, errors.New("parse date: empty value")
	}
	// A leading weekday ("Mon, Jan 1, 2024") is not understood by dateparse.
	if rest, ok := stripWeekday(trimmed); ok {
		if ts, err := dateparse.ParseIn(rest, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	ts, err := dateparse.ParseIn(trimmed, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return ts.UTC(), nil
}

var weekdayNames = func() map[string]struct{} {
	names := make(map[string]struct{}, 14)
	for d := time.Sunday; d <= time.Saturday; d++ {
		long := strings.ToLower(d.String())
		names[long] = struct{}{}
		names[long[:3]] = struct{}{}
	}
	return names
}()

// stripWeekday removes a leading weekday word such as "Mon," from value.
func stripWeekday(value string) (string, bool) {
	head, rest, ok := strings.Cut(value, " ")
	if !ok {
		return value, false
	}
	if _, ok := weekdayNames[strings.ToLower(strings.TrimSuffix(head, ","))]; !ok {
		return value, false
	}
	rest = strings.TrimSpace(rest)
	return rest, rest != ""
}

func stripPercent(value string) string {
	return strings.ReplaceAll(value, "%", "")
}
