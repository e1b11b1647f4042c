// Package main hosts the auctionload CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds the folder,
// warehouse, and ledger the internal packages need, and renders their results
// for a terminal. "run" is the command a scheduler invokes; "preview",
// "history", and "check" help an operator see what a run would do, what runs
// did, and whether the environment is ready.
//
// Keep this package lean: behavior belongs in internal packages and is only
// surfaced here.
package main
