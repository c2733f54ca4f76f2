package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/ideaforge/internal/model"
)

func newAgentsCmd(opts *rootOptions) *cobra.Command {
	c := &cobra.Command{
		Use:   "agents",
		Short: "Inspect and configure data-source agents",
	}
	c.AddCommand(
		newAgentsListCmd(opts),
		newAgentsRunsCmd(opts),
		newAgentsToggleCmd(opts, true),
		newAgentsToggleCmd(opts, false),
	)
	return c
}

func newAgentsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the agent catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := newEnv(ctx, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			agents, err := e.client.ListAgents(ctx)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, agents, func(w io.Writer) {
				writeAgentTable(w, agents)
			})
		},
	}
}

func newAgentsRunsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "runs <run-id>",
		Short: "Show per-agent status for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := newEnv(ctx, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			statuses, err := e.client.AgentRuns(ctx, args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, statuses, func(w io.Writer) {
				fmt.Fprintln(w, "AGENT\tSTATUS\tDURATION\tDETAIL")
				for _, s := range statuses {
					duration := "-"
					if s.DurationSeconds != nil {
						duration = strconv.FormatFloat(*s.DurationSeconds, 'f', 1, 64) + "s"
					}
					detail := ""
					switch {
					case s.ErrorMessage != nil:
						detail = *s.ErrorMessage
					case s.ResultSummary != nil:
						detail = *s.ResultSummary
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.AgentName, s.Status, duration, orDash(detail))
				}
			})
		},
	}
}

func newAgentsToggleCmd(opts *rootOptions, enable bool) *cobra.Command {
	use, short := "disable <agent-id>...", "Disable agents for future runs"
	if enable {
		use, short = "enable <agent-id>...", "Enable agents for future runs"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := newEnv(ctx, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			d := e.newDashboard(nil)
			defer d.Close()
			if err := d.LoadAgents(ctx); err != nil {
				return err
			}
			if err := d.SetAgentEnabled(ctx, enable, args...); err != nil {
				return err
			}
			agents := d.Agents().List()
			return render(cmd.OutOrStdout(), opts, agents, func(w io.Writer) {
				writeAgentTable(w, agents)
			})
		},
	}
}

func writeAgentTable(w io.Writer, agents []model.AgentInfo) {
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tCOST\tENABLED\tKEY")
	for _, a := range agents {
		key := "-"
		if a.RequiresKey != nil {
			key = "missing"
			if a.HasAPIKey {
				key = "set"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", a.ID, a.Name, orDash(a.Category), orDash(a.Cost), yesNo(a.Enabled), key)
	}
}
