// Package services defines shared utilities consumed by the batch driver and
// its external integrations (source folders and warehouses).
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, file names, and stage names for
//     logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent ledger statuses (failed vs review).
//
// Use these helpers when wiring new backends so operational behaviour (error
// handling, observability) stays uniform across the run.
package services
