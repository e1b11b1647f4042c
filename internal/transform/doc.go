// Package transform turns an Auction Insights CSV export into the filtered,
// normalized CSV that gets loaded into the warehouse.
//
// The pipeline is a straight line: Parse drops the report header block and
// decodes the remaining CSV, CountKeys and RetainedKeys select the domains
// that appear often enough, FormatRow normalizes the date and percentage
// columns, and Serialize joins the surviving rows with CRLF. Apply runs the
// whole pipeline and reports counts so callers can record them.
//
// Nothing here performs I/O; the batch package feeds text in and takes text
// out.
package transform
