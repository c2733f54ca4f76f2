package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/ideaforge/internal/history"
	"github.com/ashita-ai/ideaforge/internal/model"
)

func newResearchCmd(opts *rootOptions) *cobra.Command {
	c := &cobra.Command{
		Use:   "research",
		Short: "Start or cancel research runs",
	}
	c.AddCommand(newResearchStartCmd(opts), newResearchCancelCmd(opts))
	return c
}

func newResearchStartCmd(opts *rootOptions) *cobra.Command {
	var (
		query    string
		sources  []string
		provider string
	)
	c := &cobra.Command{
		Use:   "start",
		Short: "Start a research run",
		Long: `Start a research run and print it. The run continues on the backend;
follow it with 'ideaforge watch' or read the results later with 'ideaforge ideas list'.

Examples:
  ideaforge research start -q "AI tools for small business"
  ideaforge research start -q "pet care" --sources hackernews,reddit --provider gemini`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := newEnv(ctx, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			if !cmd.Flags().Changed("sources") {
				sources = e.cfg.Sources
			}
			d := e.newDashboard(nil)
			defer d.Close()

			run, err := d.StartResearch(ctx, query, sources, provider)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, run, func(w io.Writer) {
				fmt.Fprintln(w, "RUN ID\tSTATUS\tPROVIDER\tSOURCES\tQUERY")
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					run.RunID, run.Status, orDash(run.LLMProvider), strings.Join(run.Sources, ","), run.Query)
			})
		},
	}
	c.Flags().StringVarP(&query, "query", "q", "", "What to research (required)")
	c.Flags().StringSliceVarP(&sources, "sources", "s", nil, "Source agents to query (default from config)")
	c.Flags().StringVarP(&provider, "provider", "p", "", "LLM provider (default from config)")
	_ = c.MarkFlagRequired("query")
	return c
}

func newResearchCancelCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <run-id>",
		Short: "Cancel a research run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := newEnv(ctx, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			runID := args[0]
			if err := e.client.CancelResearch(ctx, runID); err != nil {
				return err
			}
			if e.history != nil {
				err := e.history.SetRunStatus(ctx, runID, model.RunStatusCancelled, "")
				if err != nil && !errors.Is(err, history.ErrNotFound) {
					e.logger.Warn("history: record cancellation", "run_id", runID, "error", err)
				}
			}

			result := map[string]any{"run_id": runID, "cancelled": true}
			return render(cmd.OutOrStdout(), opts, result, func(w io.Writer) {
				fmt.Fprintf(w, "Cancelled run %s\n", runID)
			})
		},
	}
}
