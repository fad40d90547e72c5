package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"screenrec/internal/api"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent recordings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(func(b backend) error {
				recs, err := b.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.HistoryResponse{Recordings: recs})
				}
				stdout := cmd.OutOrStdout()
				if len(recs) == 0 {
					fmt.Fprintln(stdout, "No recordings yet")
					return nil
				}
				rows := make([][]string, 0, len(recs))
				var total int64
				for _, rec := range recs {
					size := "-"
					if info, err := os.Stat(rec.OutputPath); err == nil {
						size = formatBytes(info.Size())
						total += info.Size()
					}
					rows = append(rows, []string{
						displayTime(rec.StartedAt),
						recordingLength(rec),
						stateLabel(rec.Status),
						rec.Monitor,
						size,
						filepath.Base(rec.OutputPath),
					})
				}
				fmt.Fprint(stdout, renderTable([]column{
					{header: "Started"},
					{header: "Length", align: alignRight},
					{header: "Status"},
					{header: "Monitor"},
					{header: "Size", align: alignRight},
					{header: "File"},
				}, rows))
				fmt.Fprintln(stdout, numbers.Sprintf("%d recordings, %s on disk", len(recs), formatBytes(total)))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of recordings to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func displayTime(value string) string {
	t, err := api.ParseTime(value)
	if err != nil || t.IsZero() {
		return value
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func recordingLength(rec api.Recording) string {
	start, err := api.ParseTime(rec.StartedAt)
	if err != nil || start.IsZero() || rec.StoppedAt == "" {
		return "-"
	}
	stop, err := api.ParseTime(rec.StoppedAt)
	if err != nil || stop.Before(start) {
		return "-"
	}
	return stop.Sub(start).Round(time.Second).String()
}
