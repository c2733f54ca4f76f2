package cmd

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ashita-ai/ideaforge/internal/tui"
)

func newWatchCmd() *cobra.Command {
	var (
		query    string
		sources  []string
		provider string
	)
	c := &cobra.Command{
		Use:   "watch",
		Short: "Follow the current research run live",
		Long: `Open the live run view: per-agent progress, token usage against the
provider's rate limit, elapsed time and ideas as they arrive.

With --query a new run is started first.

Keys: c cancels the run, r reloads ideas, q quits. Quitting never cancels
the run on the backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			e, err := newEnv(ctx, envOptions{quietLogs: true})
			if err != nil {
				return err
			}
			defer e.Close()
			if !cmd.Flags().Changed("sources") {
				sources = e.cfg.Sources
			}

			d := e.newDashboard(e.newChannel())
			defer d.Close()
			d.Start(ctx)

			model := tui.New(d)
			defer model.Close()
			program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				defer cancel()
				_, err := program.Run()
				if errors.Is(err, tea.ErrProgramKilled) {
					return nil
				}
				return err
			})
			g.Go(func() error {
				if err := d.LoadSettings(gctx); err != nil {
					e.logger.Debug("watch: load settings", "error", err)
				}
				if query == "" {
					return nil
				}
				// Failures land in the store and are shown by the view.
				if _, err := d.StartResearch(gctx, query, sources, provider); err != nil {
					e.logger.Warn("watch: start research", "error", err)
				}
				return nil
			})
			if err := g.Wait(); err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			return nil
		},
	}
	c.Flags().StringVarP(&query, "query", "q", "", "Start a new run for this query before watching")
	c.Flags().StringSliceVarP(&sources, "sources", "s", nil, "Source agents for --query (default from config)")
	c.Flags().StringVarP(&provider, "provider", "p", "", "LLM provider for --query (default from config)")
	return c
}
