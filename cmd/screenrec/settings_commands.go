package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"screenrec/internal/api"
	"screenrec/internal/session"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change the saved recording settings",
	}
	settingsCmd.AddCommand(newSettingsShowCommand(ctx))
	settingsCmd.AddCommand(newSettingsSetCommand(ctx))
	settingsCmd.AddCommand(newSettingsResetCommand(ctx))
	return settingsCmd
}

func newSettingsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the saved recording settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(func(b backend) error {
				cfg, err := b.LoadConfig(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, cfg)
				}
				printSettings(cmd.OutOrStdout(), cfg)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one saved setting",
		Long: "Change one saved setting. Keys: resolution, framerate (fps), codec, " +
			"quality (crf), audio, remux, monitor, destination (save_location).",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(func(b backend) error {
				cfg, err := b.SetSetting(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", args[0])
				printSettings(cmd.OutOrStdout(), cfg)
				return nil
			})
		},
	}
}

func newSettingsResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the default recording settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(func(b backend) error {
				cfg, err := b.ResetConfig(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Settings reset to defaults")
				printSettings(cmd.OutOrStdout(), cfg)
				return nil
			})
		},
	}
}

func printSettings(out io.Writer, cfg api.SessionConfig) {
	destination := cfg.Destination
	if destination == "" {
		destination = "(current directory)"
	}
	rows := [][]string{
		{session.KeyResolution, cfg.Resolution},
		{session.KeyFrameRate, strconv.Itoa(cfg.FrameRate)},
		{session.KeyCodec, cfg.Codec},
		{session.KeyQuality, strconv.Itoa(cfg.Quality)},
		{session.KeyAudio, yesNo(cfg.Audio)},
		{session.KeyRemux, yesNo(cfg.Remux)},
		{session.KeyMonitor, strconv.Itoa(cfg.Monitor)},
		{session.KeyDestination, destination},
	}
	fmt.Fprint(out, renderTable([]column{{header: "Setting"}, {header: "Value"}}, rows))
}
