package preflight

import (
	"context"

	"auctionload/internal/config"
	"auctionload/internal/source"
	"auctionload/internal/warehouse"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the local checks for cfg, then the remote checks for the
// folder and warehouse when they are provided.
func RunAll(ctx context.Context, cfg *config.Config, folder source.Folder, wh warehouse.Warehouse) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Source.Kind == config.SourceLocal {
		results = append(results, CheckDirectoryAccess("Source directory", cfg.Source.Dir))
	} else {
		results = append(results, CheckCredentials("Source credentials", cfg.Source.CredentialsFile))
	}
	if cfg.Warehouse.Kind == config.WarehouseBigQuery {
		results = append(results, CheckCredentials("Warehouse credentials", cfg.Warehouse.CredentialsFile))
	}
	if folder != nil {
		results = append(results, CheckFolder(ctx, folder, cfg.Naming.SkipMarker))
	}
	if wh != nil {
		results = append(results, CheckWarehouse(ctx, wh))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
