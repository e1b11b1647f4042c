// Package warehouse creates the daily Auction Insights table and loads
// filtered CSV into it.
//
// BigQuery is the production backend. The SQLite backend stores the same rows
// in a local database file and exists for offline runs and tests.
package warehouse
