package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/crate/internal/errmsg"
	"github.com/llehouerou/crate/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show what happened to recent albums",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := ctx.ensure()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "History is disabled")
				return nil
			}

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("%s: %w", errmsg.OpHistoryOpen, err)
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("%s: %w", errmsg.OpHistoryList, err)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No history yet")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHistory(entries))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show (0 for all)")
	return cmd
}

func renderHistory(entries []history.Entry) string {
	headers := []string{"When", "Pipeline", "Artist", "Album", "Outcome", "Files", "Size", "Details"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		details := e.Destination
		if e.Reason != "" {
			details = e.Reason
		}
		size := ""
		if e.Bytes > 0 {
			size = humanize.IBytes(uint64(e.Bytes))
		}
		rows = append(rows, []string{
			e.RecordedAt.Local().Format("2006-01-02 15:04"),
			e.Pipeline,
			e.Artist,
			e.Album,
			e.Outcome,
			fmt.Sprint(e.Files),
			size,
			details,
		})
	}
	return renderTable(headers, rows, []columnAlignment{
		alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft,
	})
}
