// Package ledger persists batch run history in SQLite.
//
// Each run gets a row in `runs`; every file the driver touches during that
// run gets a row in `files` with its outcome, row counts, output artifact,
// target table, and load job identifier. The driver consults the ledger before
// loading so a file whose mark-processed step failed is not loaded twice on
// the next run.
//
// Schema changes bump the version in schema.go; users delete ledger.db to
// adopt the new schema.
package ledger
