package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"screenrec/internal/daemonctl"
	"screenrec/internal/ipc"
	"screenrec/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test desktop notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ipc.Dial(ctx.socketPath())
			if err != nil {
				if !daemonctl.IsDaemonUnavailable(err) {
					return wrapDialError(err, ctx.socketPath())
				}
				return sendLocalTestNotification(cmd, ctx)
			}
			defer client.Close()
			resp, err := client.TestNotification()
			if err != nil {
				return err
			}
			switch {
			case resp.Message != "":
				fmt.Fprintln(stdout, resp.Message)
			case resp.Sent:
				fmt.Fprintln(stdout, "Test notification sent")
			default:
				fmt.Fprintln(stdout, "Notification not sent")
			}
			return nil
		},
	}
}

func sendLocalTestNotification(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Notifications.Enabled {
		fmt.Fprintln(cmd.OutOrStdout(), "notifications disabled in config")
		return nil
	}
	if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
	return nil
}
