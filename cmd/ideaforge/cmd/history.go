package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	c := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show runs started from this machine",
		Long: `Without arguments, list recent runs from the local history database.
With a run ID, list the ideas that run delivered.

History is recorded when IDEAFORGE_HISTORY_PATH (or [history] path in
ideaforge.toml) points at a SQLite file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := newEnv(ctx, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()
			if err := e.requireHistory(); err != nil {
				return err
			}

			if len(args) == 1 {
				if _, err := e.history.GetRun(ctx, args[0]); err != nil {
					return fmt.Errorf("run %s: %w", args[0], err)
				}
				ideas, err := e.history.IdeasForRun(ctx, args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, ideas, func(w io.Writer) {
					writeIdeaTable(w, ideas)
				})
			}

			runs, err := e.history.RecentRuns(ctx, limit)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, runs, func(w io.Writer) {
				fmt.Fprintln(w, "RUN ID\tSTATUS\tIDEAS\tCREATED\tQUERY")
				for _, r := range runs {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", r.RunID, r.Status, r.IdeaCount, formatTime(r.CreatedAt), r.Query)
				}
			})
		},
	}
	c.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs")
	return c
}
