package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"muse/internal/api"
	"muse/internal/client"
	"muse/internal/orchestrator"
	"muse/internal/stage"
)

func newStagesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stages",
		Short: "List the stages that can be processed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				stages, err := c.Stages(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, stages)
				}
				for _, name := range stages {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  (%s)\n", name, stageLabel(name))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

// registerParameterFlags exposes every stage parameter as a flag. Stages
// ignore parameters they do not use, so one flag set serves all of them.
func registerParameterFlags(cmd *cobra.Command, params *stage.Parameters) {
	flags := cmd.Flags()
	flags.StringVar(&params.Background, "background", "", "Background context")
	flags.StringVar(&params.ProsCons, "pros-cons", "", "Known pros and cons")
	flags.StringVar(&params.Goals, "goals", "", "Goals for the idea")
	flags.StringVar(&params.FeasibilityData, "feasibility-data", "", "Feasibility data")
	flags.StringVar(&params.CurrentIteration, "current-iteration", "", "Current iteration summary")
	flags.StringVar(&params.Feedback, "feedback", "", "Feedback received")
	flags.StringVar(&params.StakeholderFeedback, "stakeholder-feedback", "", "Stakeholder feedback")
	flags.StringVar(&params.BusinessCase, "business-case", "", "Business case")
	flags.StringVar(&params.Resources, "resources", "", "Available resources")
	flags.StringVar(&params.ImplementationPlan, "implementation-plan", "", "Implementation plan")
	flags.StringVar(&params.Timeline, "timeline", "", "Timeline")
	flags.StringVar(&params.Metrics, "metrics", "", "Tracked metrics")
	flags.StringVar(&params.Outcome, "outcome", "", "Final outcome")
	flags.StringVar(&params.LessonsLearned, "lessons-learned", "", "Lessons learned")
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var req api.ProcessRequest
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "process <id>",
		Short: "Run a stage analysis without changing the idea's stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.requireActor(); err != nil {
				return err
			}
			return ctx.withClient(func(c *client.Client) error {
				outcome, err := c.Process(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, outcome)
				}
				printProcessingOutcome(cmd, outcome)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Stage, "stage", "", "Stage to process (required)")
	registerParameterFlags(cmd, &req.Parameters)
	_ = cmd.MarkFlagRequired("stage")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newTransitionCommand(ctx *commandContext) *cobra.Command {
	var req api.TransitionRequest
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "transition <id>",
		Short: "Move an idea to a new stage and run that stage's analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.requireActor(); err != nil {
				return err
			}
			return ctx.withClient(func(c *client.Client) error {
				outcome, err := c.Transition(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, outcome)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				tr := outcome.Transition
				if outcome.Success {
					fmt.Fprintln(out, renderStatusLine("Transition", statusOK,
						fmt.Sprintf("%s -> %s", stageLabel(string(tr.FromStage)), stageLabel(string(tr.ToStage))), colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Transition", statusError,
						fmt.Sprintf("%s -> %s rolled back", stageLabel(string(tr.FromStage)), stageLabel(string(tr.ToStage))), colorize))
				}
				printProcessingOutcome(cmd, outcome.ProcessingOutcome)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.NewStage, "to", "", "Target stage (required)")
	registerParameterFlags(cmd, &req.Parameters)
	_ = cmd.MarkFlagRequired("to")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func printProcessingOutcome(cmd *cobra.Command, outcome orchestrator.ProcessingOutcome) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	if !outcome.Success {
		fmt.Fprintln(out, renderStatusLine(stageLabel(string(outcome.Stage)), statusError, outcome.Error, colorize))
		return
	}
	fmt.Fprintln(out, renderStatusLine(stageLabel(string(outcome.Stage)), statusOK, "analysis complete", colorize))

	keys := make([]string, 0, len(outcome.AIOutput))
	for key := range outcome.AIOutput {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(out, "%s%s: %v\n", statusIndent, key, outcome.AIOutput[key])
	}
}
