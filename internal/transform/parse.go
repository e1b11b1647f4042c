package transform

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Row is one data line of an export, as ordered string fields.
type Row []string

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Parse drops the first headerLines physical lines of text and decodes the
// remainder as RFC 4180 CSV. Quoted fields may contain commas and line
// breaks. Text with headerLines lines or fewer yields no rows and no error.
// A malformed record stops parsing; the rows before it are returned with the
// error.
func Parse(text string, headerLines int) ([]Row, error) {
	body, ok := skipLines(text, headerLines)
	if !ok || strings.TrimSpace(body) == "" {
		return nil, nil
	}

	reader := csv.NewReader(strings.NewReader(body))
	reader.FieldsPerRecord = -1

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("parse csv: %w", err)
		}
		rows = append(rows, Row(record))
	}
	return rows, nil
}

// skipLines removes n lines terminated by LF or CRLF. It reports false when
// the text ends before n lines were consumed.
func skipLines(text string, n int) (string, bool) {
	rest := text
	for i := 0; i < n; i++ {
		idx := strings.IndexByte(rest, '\n')
		if idx < 0 {
			return "", false
		}
		rest = rest[idx+1:]
	}
	return rest, true
}
