package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"auctionload/internal/logging"
	"auctionload/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var localOnly bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, credentials, the folder, and the warehouse",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, nil, nil)
			if !localOnly {
				folder, wh, closer, err := ctx.backends(cmd.Context(), cfg, logging.NewNop())
				if err != nil {
					return err
				}
				defer closer()
				results = append(results,
					preflight.CheckFolder(cmd.Context(), folder, cfg.Naming.SkipMarker),
					preflight.CheckWarehouse(cmd.Context(), wh),
				)
			}

			out := cmd.OutOrStdout()
			printResults(out, results)
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&localOnly, "local", false, "Skip the folder and warehouse checks")
	return cmd
}

func printResults(out io.Writer, results []preflight.Result) {
	colorize := shouldColorize(out)
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
}
