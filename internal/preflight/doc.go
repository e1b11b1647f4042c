// Package preflight provides readiness checks for the folder, the warehouse,
// and the local paths auctionload depends on.
//
// The CLI "auctionload check" command prints every result, and "auctionload
// run" refuses to start when a check fails. Each check returns a Result
// rather than an error so callers can render all of them at once.
package preflight
