package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/ideaforge/internal/model"
)

func newIdeasCmd(opts *rootOptions) *cobra.Command {
	c := &cobra.Command{
		Use:   "ideas",
		Short: "Browse business ideas",
	}
	c.AddCommand(newIdeasListCmd(opts), newIdeasGetCmd(opts))
	return c
}

func newIdeasListCmd(opts *rootOptions) *cobra.Command {
	var skip, limit int
	c := &cobra.Command{
		Use:   "list",
		Short: "List ideas, best first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if skip < 0 || limit < 1 {
				return fmt.Errorf("--skip must be >= 0 and --limit >= 1")
			}
			ctx := cmd.Context()
			e, err := newEnv(ctx, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			list, err := e.client.ListIdeas(ctx, skip, limit)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, list, func(w io.Writer) {
				writeIdeaTable(w, list.Items)
				fmt.Fprintf(w, "\nShowing %d of %d\n", len(list.Items), list.Total)
			})
		},
	}
	c.Flags().IntVar(&skip, "skip", 0, "Number of ideas to skip")
	c.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of ideas")
	return c
}

func newIdeasGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid idea id %q", args[0])
			}
			ctx := cmd.Context()
			e, err := newEnv(ctx, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			idea, err := e.client.GetIdea(ctx, id)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, idea, func(w io.Writer) {
				fmt.Fprintf(w, "ID:\t%d\n", idea.ID)
				fmt.Fprintf(w, "Title:\t%s\n", idea.Title)
				fmt.Fprintf(w, "Source:\t%s\n", orDash(idea.Source))
				if idea.SourceURL != nil {
					fmt.Fprintf(w, "URL:\t%s\n", *idea.SourceURL)
				}
				fmt.Fprintf(w, "Status:\t%s\n", orDash(idea.Status))
				fmt.Fprintf(w, "Created:\t%s\n", formatTime(idea.CreatedAt))
				fmt.Fprintf(w, "Score:\t%s\n", formatScore(idea.CompositeScore))
				fmt.Fprintf(w, "  Business potential:\t%s\n", formatScore(idea.BusinessPotential))
				fmt.Fprintf(w, "  Market size:\t%s\n", formatScore(idea.MarketSizeScore))
				fmt.Fprintf(w, "  Competition:\t%s\n", formatScore(idea.CompetitionScore))
				fmt.Fprintf(w, "  Sentiment:\t%s\n", formatScore(idea.SentimentScore))
				if idea.Summary != "" {
					fmt.Fprintf(w, "\n%s\n", idea.Summary)
				}
			})
		},
	}
}

func writeIdeaTable(w io.Writer, ideas []model.Idea) {
	fmt.Fprintln(w, "ID\tSCORE\tSOURCE\tTITLE")
	for _, i := range ideas {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i.ID, formatScore(i.CompositeScore), orDash(i.Source), i.Title)
	}
}
