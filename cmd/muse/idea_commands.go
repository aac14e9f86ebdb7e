package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"muse/internal/api"
	"muse/internal/client"
)

func newIdeaCommand(ctx *commandContext) *cobra.Command {
	ideaCmd := &cobra.Command{
		Use:   "idea",
		Short: "Manage ideas",
	}

	ideaCmd.AddCommand(newIdeaListCommand(ctx))
	ideaCmd.AddCommand(newIdeaShowCommand(ctx))
	ideaCmd.AddCommand(newIdeaCreateCommand(ctx))
	ideaCmd.AddCommand(newIdeaUpdateCommand(ctx))
	ideaCmd.AddCommand(newIdeaDeleteCommand(ctx))
	ideaCmd.AddCommand(newIdeaCallsCommand(ctx))

	return ideaCmd
}

func newIdeaListCommand(ctx *commandContext) *cobra.Command {
	var status string
	var limit, offset int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ideas visible to the acting user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.requireActor(); err != nil {
				return err
			}
			return ctx.withClient(func(c *client.Client) error {
				items, err := c.ListIdeas(cmd.Context(), status, limit, offset)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No ideas found")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.ID,
						item.Title,
						stageLabel(item.Status),
						yesNo(item.IsPublic),
						item.Tags,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Stage", "Public", "Tags"},
					rows,
					nil,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by stage")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum ideas to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of ideas to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newIdeaShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.requireActor(); err != nil {
				return err
			}
			return ctx.withClient(func(c *client.Client) error {
				item, err := c.GetIdea(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, item)
				}
				printIdea(cmd, item)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newIdeaCreateCommand(ctx *commandContext) *cobra.Command {
	var req api.CreateIdeaRequest
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a new idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.requireActor(); err != nil {
				return err
			}
			req.Title = args[0]
			return ctx.withClient(func(c *client.Client) error {
				item, err := c.CreateIdea(cmd.Context(), req)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, item)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created idea %s (%s)\n", item.ID, stageLabel(item.Status))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Description, "description", "", "Idea description")
	cmd.Flags().StringVar(&req.Status, "status", "", "Initial stage (defaults to draft)")
	cmd.Flags().StringVar(&req.Tags, "tags", "", "Comma-separated tags")
	cmd.Flags().BoolVar(&req.IsPublic, "public", false, "Make the idea visible to everyone")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newIdeaUpdateCommand(ctx *commandContext) *cobra.Command {
	var title, description, status, tags string
	var public bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.requireActor(); err != nil {
				return err
			}
			var req api.UpdateIdeaRequest
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("status") {
				req.Status = &status
			}
			if cmd.Flags().Changed("tags") {
				req.Tags = &tags
			}
			if cmd.Flags().Changed("public") {
				req.IsPublic = &public
			}
			return ctx.withClient(func(c *client.Client) error {
				item, err := c.UpdateIdea(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, item)
				}
				printIdea(cmd, item)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&status, "status", "", "New stage")
	cmd.Flags().StringVar(&tags, "tags", "", "New comma-separated tags")
	cmd.Flags().BoolVar(&public, "public", false, "Visibility")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newIdeaDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.requireActor(); err != nil {
				return err
			}
			return ctx.withClient(func(c *client.Client) error {
				if err := c.DeleteIdea(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted idea %s\n", args[0])
				return nil
			})
		},
	}
}

func newIdeaCallsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "calls <id>",
		Short: "List recorded model calls for an idea",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.requireActor(); err != nil {
				return err
			}
			return ctx.withClient(func(c *client.Client) error {
				calls, err := c.AICalls(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, calls)
				}
				if len(calls) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No model calls recorded")
					return nil
				}
				rows := make([][]string, 0, len(calls))
				for _, call := range calls {
					rows = append(rows, []string{
						fmt.Sprintf("%d", call.ID),
						stageLabel(call.Stage),
						call.Model,
						call.CreatedAt.Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"#", "Stage", "Model", "When"},
					rows,
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}

	cmd.Args = cobra.ExactArgs(1)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func printIdea(cmd *cobra.Command, item api.IdeaDTO) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", item.Title)
	fmt.Fprintf(out, "  ID:      %s\n", item.ID)
	fmt.Fprintf(out, "  Stage:   %s\n", stageLabel(item.Status))
	fmt.Fprintf(out, "  Public:  %s\n", yesNo(item.IsPublic))
	if strings.TrimSpace(item.Tags) != "" {
		fmt.Fprintf(out, "  Tags:    %s\n", item.Tags)
	}
	fmt.Fprintf(out, "  Creator: %s\n", item.CreatorID)
	fmt.Fprintf(out, "  Updated: %s\n", item.UpdatedAt.Format("2006-01-02 15:04"))
	if strings.TrimSpace(item.Description) != "" {
		fmt.Fprintf(out, "\n%s\n", item.Description)
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
