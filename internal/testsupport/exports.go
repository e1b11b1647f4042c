package testsupport

import (
	"fmt"
	"strings"
)

// ExportHeader is the three-line block Ads prepends to Auction Insights exports.
const ExportHeader = "Auction insights report\r\n" +
	"\"January 1, 2024 - January 31, 2024\"\r\n" +
	"Account,Display URL domain,Day,Impr. share,Top of page rate,Abs. Top of page rate,Position above rate\r\n"

// ExportBuilder assembles synthetic export text.
type ExportBuilder struct {
	b strings.Builder
}

// NewExport starts an export with the standard header block.
func NewExport() *ExportBuilder {
	e := &ExportBuilder{}
	e.b.WriteString(ExportHeader)
	return e
}

// Rows appends n rows for domain, one per day starting 2024-01-01.
func (e *ExportBuilder) Rows(domain string, n int) *ExportBuilder {
	for i := 0; i < n; i++ {
		day := i%28 + 1
		fmt.Fprintf(&e.b, "Acme,%s,2024-01-%02d,<10%%,45.5%%,12%%, -- \r\n", domain, day)
	}
	return e
}

// Line appends one raw line.
func (e *ExportBuilder) Line(line string) *ExportBuilder {
	e.b.WriteString(line)
	e.b.WriteString("\r\n")
	return e
}

// String returns the accumulated text.
func (e *ExportBuilder) String() string {
	return e.b.String()
}
