package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"auctionload/internal/batch"
	"auctionload/internal/logging"
	"auctionload/internal/source"
	"auctionload/internal/transform"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var summaryOnly bool
	var threshold int

	cmd := &cobra.Command{
		Use:         "preview <export.csv>",
		Short:       "Filter a local export and print the resulting CSV",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := transform.DefaultOptions()
			// Preview works without a complete config; filter settings are
			// taken from it when it loads.
			if cfg, err := ctx.ensureConfig(); err == nil {
				opts = batch.OptionsFromConfig(cfg).Filter
			}
			if cmd.Flags().Changed("threshold") {
				if threshold < 1 {
					return fmt.Errorf("--threshold must be >= 1")
				}
				opts.Threshold = threshold
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read export: %w", err)
			}
			text, err := source.DecodeText(raw)
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:       ctx.logLevel(),
				Format:      "console",
				OutputPaths: []string{"stderr"},
			})
			if err != nil {
				return err
			}
			result, err := transform.Apply(text, opts, logger)
			if err != nil {
				return err
			}

			if !summaryOnly && result.Output != "" {
				fmt.Fprint(cmd.OutOrStdout(), result.Output)
				fmt.Fprint(cmd.OutOrStdout(), transform.LineBreak)
			}
			errOut := cmd.ErrOrStderr()
			fmt.Fprintf(errOut, "Rows parsed: %d\n", result.RowsParsed)
			fmt.Fprintf(errOut, "Keys: %d seen, %d at or above %d\n", result.KeysSeen, len(result.KeysRetained), opts.Threshold)
			if len(result.KeysRetained) > 0 {
				fmt.Fprintf(errOut, "Retained: %s\n", strings.Join(result.KeysRetained, ", "))
			}
			fmt.Fprintf(errOut, "Rows written: %d (dropped %d)\n", result.RowsWritten, result.RowsDropped)
			return nil
		},
	}

	cmd.Flags().BoolVar(&summaryOnly, "summary", false, "Print only the summary")
	cmd.Flags().IntVar(&threshold, "threshold", transform.DefaultThreshold, "Override filter.threshold")
	return cmd
}
