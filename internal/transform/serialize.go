package transform

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// LineBreak separates serialized rows.
const LineBreak = "\r\n"

// Serialize renders rows as CSV joined by CRLF with no trailing line break.
// encoding/csv quotes a field only when it holds a comma, quote, or line
// break, so plain rows come out as a bare comma join.
func Serialize(rows []Row) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	writer.UseCRLF = true
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return "", fmt.Errorf("serialize row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("serialize rows: %w", err)
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte(LineBreak))), nil
}
