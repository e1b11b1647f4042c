package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"auctionload/internal/batch"
	"auctionload/internal/ledger"
	"auctionload/internal/preflight"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var maxFiles int
	var dryRun bool
	var skipChecks bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Filter pending exports in the folder and load them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}
			store, err := ctx.openLedger(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			folder, wh, closer, err := ctx.backends(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closer()

			if !skipChecks {
				results := preflight.RunAll(cmd.Context(), cfg, folder, wh)
				if failed := preflight.Failed(results); len(failed) > 0 {
					printResults(cmd.ErrOrStderr(), failed)
					return fmt.Errorf("preflight failed: %d check(s)", len(failed))
				}
			}

			opts := batch.OptionsFromConfig(cfg)
			if cmd.Flags().Changed("max-files") {
				if maxFiles < 0 {
					return errors.New("--max-files must be >= 0")
				}
				opts.MaxFiles = maxFiles
			}
			opts.DryRun = dryRun

			runner, err := batch.New(folder, wh, store, opts, logger)
			if err != nil {
				return err
			}
			summary, runErr := runner.Run(cmd.Context())
			if summary != nil {
				printSummary(cmd.OutOrStdout(), summary)
			}
			if runErr != nil {
				return runErr
			}
			if n := summary.Failed(); n > 0 {
				return fmt.Errorf("%d file(s) failed; see 'auctionload history --files'", n)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "Maximum exports to handle this run (0 = no limit, overrides run.max_files)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Read and filter exports without writing, loading, or trashing anything")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip preflight checks")
	return cmd
}

func printSummary(out io.Writer, summary *batch.Summary) {
	mode := ""
	if summary.DryRun {
		mode = " (dry run)"
	}
	if len(summary.Files) == 0 {
		fmt.Fprintf(out, "Run %s%s: no exports found\n", shortID(summary.RunID), mode)
		return
	}

	rows := make([][]string, 0, len(summary.Files))
	for _, f := range summary.Files {
		note := f.JobID
		if f.Err != nil {
			note = truncate(f.Err.Error(), 60)
		}
		rows = append(rows, []string{
			f.Name,
			string(f.Status),
			strconv.Itoa(f.RowsWritten),
			strconv.Itoa(f.RowsDropped),
			f.OutputName,
			f.TableName,
			note,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"File", "Status", "Rows", "Dropped", "Output", "Table", "Job / Error"},
		rows, 2, 3,
	))
	fmt.Fprintf(out, "Run %s%s: %d loaded, %d empty, %d skipped, %d swept, %d failed\n",
		shortID(summary.RunID), mode,
		summary.Count(ledger.StatusLoaded),
		summary.Count(ledger.StatusEmpty),
		summary.Count(ledger.StatusSkipped),
		summary.Count(ledger.StatusSwept),
		summary.Failed(),
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
