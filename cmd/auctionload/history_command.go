package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"auctionload/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var showFiles bool
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs and file outcomes from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openLedger(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			switch {
			case runID != "":
				files, err := store.FilesForRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				printFiles(out, files)
			case showFiles:
				files, err := store.RecentFiles(cmd.Context(), limit)
				if err != nil {
					return err
				}
				printFiles(out, files)
			default:
				runs, err := store.RecentRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				printRuns(out, runs)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of entries to show")
	cmd.Flags().BoolVar(&showFiles, "files", false, "List file outcomes instead of runs")
	cmd.Flags().StringVar(&runID, "run", "", "List the files of one run")
	return cmd
}

func printRuns(out io.Writer, runs []*ledger.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		duration := "-"
		if r.FinishedAt != nil {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			r.ID,
			humanize.Time(r.StartedAt),
			duration,
			string(r.Status),
			strconv.Itoa(r.FilesTotal),
			strconv.Itoa(r.FilesLoaded),
			strconv.Itoa(r.FilesFailed),
			yesNo(r.DryRun),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Run", "Started", "Took", "Status", "Files", "Loaded", "Failed", "Dry run"},
		rows, 4, 5, 6,
	))
}

func printFiles(out io.Writer, files []*ledger.FileRecord) {
	if len(files) == 0 {
		fmt.Fprintln(out, "No files recorded")
		return
	}
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		detail := f.TableName
		if f.ErrorMessage != "" {
			detail = truncate(f.ErrorMessage, 60)
		}
		rows = append(rows, []string{
			shortID(f.RunID),
			f.SourceName,
			humanize.Bytes(uint64(max(f.SizeBytes, 0))),
			string(f.Status),
			humanize.Comma(int64(f.RowsWritten)),
			f.OutputName,
			detail,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Run", "File", "Size", "Status", "Rows", "Output", "Table / Error"},
		rows, 2, 4,
	))
}
