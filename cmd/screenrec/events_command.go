package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"screenrec/internal/ipc"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recording lifecycle events from the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			waitCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return ctx.withClient(func(client *ipc.Client) error {
				stdout := cmd.OutOrStdout()
				resp, err := client.Events(ipc.EventsRequest{Tail: true, Limit: lines})
				if err != nil {
					return err
				}
				printEvents(stdout, resp.Events)
				if !follow {
					if len(resp.Events) == 0 {
						fmt.Fprintln(stdout, "No events yet")
					}
					return nil
				}
				next := resp.Next
				for waitCtx.Err() == nil {
					resp, err := client.Events(ipc.EventsRequest{Since: next, Follow: true, WaitSeconds: 25})
					if err != nil {
						return err
					}
					printEvents(stdout, resp.Events)
					next = resp.Next
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new events until interrupted")
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of recent events to show first")
	return cmd
}

func printEvents(out io.Writer, events []ipc.Event) {
	for _, evt := range events {
		var b strings.Builder
		fmt.Fprintf(&b, "%s  %-16s %-9s %s", displayTime(evt.Timestamp), evt.Type, evt.State, evt.Message)
		if evt.Path != "" {
			fmt.Fprintf(&b, " (%s)", evt.Path)
		}
		if evt.Error != "" {
			fmt.Fprintf(&b, " error=%q", evt.Error)
		}
		fmt.Fprintln(out, b.String())
	}
}
