package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"screenrec/internal/api"
)

func newMonitorsCommand(ctx *commandContext) *cobra.Command {
	var refresh bool
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "monitors",
		Short: "List the monitors that can be recorded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(func(b backend) error {
				entries, err := b.ListMonitors(cmd.Context(), refresh)
				if err != nil {
					return err
				}
				selected := -1
				if cfg, err := b.LoadConfig(cmd.Context()); err == nil {
					selected = cfg.Monitor
				}
				if jsonOutput {
					return writeJSON(cmd, api.MonitorListResponse{Monitors: entries})
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					mark := ""
					if entry.Index == selected {
						mark = "*"
					}
					rows = append(rows, []string{strconv.Itoa(entry.Index), entry.Name, entry.Geometry, mark})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]column{
					{header: "#", align: alignRight},
					{header: "Name"},
					{header: "Geometry"},
					{header: "Selected"},
				}, rows))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Re-enumerate monitors instead of using the daemon's cached list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
