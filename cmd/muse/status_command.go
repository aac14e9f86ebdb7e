package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"muse/internal/client"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				status, err := c.Status(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, status)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				if status.Running {
					fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Daemon", statusError, "not running", colorize))
				}
				fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
				fmt.Fprintln(out, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))

				if len(status.IdeaCounts) > 0 {
					stages := make([]string, 0, len(status.IdeaCounts))
					for name := range status.IdeaCounts {
						stages = append(stages, name)
					}
					sort.Strings(stages)
					rows := make([][]string, 0, len(stages))
					for _, name := range stages {
						rows = append(rows, []string{stageLabel(name), fmt.Sprintf("%d", status.IdeaCounts[name])})
					}
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTable([]string{"Stage", "Ideas"}, rows, []columnAlignment{alignLeft, alignRight}))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
