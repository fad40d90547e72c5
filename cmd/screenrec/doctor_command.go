package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"screenrec/internal/api"
	"screenrec/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check tools, display, monitors, and directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			deps := api.FromDependencies(preflight.ProbeSystemDeps(cmd.Context(), cfg))
			writeSection(stdout, "Dependencies", colorize, dependencyLines(deps, colorize))

			destination := ""
			var monitorLines []string
			err = ctx.withBackend(func(b backend) error {
				if saved, err := b.LoadConfig(cmd.Context()); err == nil {
					destination = saved.Destination
				}
				entries, err := b.ListMonitors(cmd.Context(), true)
				if err != nil {
					return err
				}
				for _, entry := range entries {
					monitorLines = append(monitorLines, renderStatusLine(fmt.Sprintf("Monitor %d", entry.Index), statusOK,
						fmt.Sprintf("%s %s", entry.Name, entry.Geometry), colorize))
				}
				return nil
			})
			if err != nil {
				return err
			}
			writeSection(stdout, "Monitors", colorize, monitorLines)

			results := preflight.RunAll(cmd.Context(), cfg, destination)
			writeSection(stdout, "Checks", colorize, checkLines(api.FromChecks(results), colorize))

			problems := len(preflight.Failed(results))
			for _, dep := range deps {
				if !dep.Available && !dep.Optional {
					problems++
				}
			}
			if problems > 0 {
				return fmt.Errorf("doctor found %d problem(s)", problems)
			}
			fmt.Fprintln(stdout, "Everything looks good")
			return nil
		},
	}
}
