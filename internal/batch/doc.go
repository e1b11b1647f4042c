// Package batch drives one run over the configured folder.
//
// A run takes the single-instance lock, lists the folder, retires stale
// artifacts from earlier runs, and then handles each candidate export in
// turn: read, filter, write the output next to the input, create the daily
// table, load, and finally rename and trash the input. Every step's outcome
// is recorded in the run ledger. Per-file failures are logged and recorded
// and the run moves on to the next file.
package batch
