package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/ideaforge/internal/mcp"
	"github.com/ashita-ai/ideaforge/internal/ratelimit"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve IdeaForge to AI agents over MCP (stdio)",
		Long: `Run a Model Context Protocol server on stdin/stdout. Agents get tools to
start, follow and cancel research runs and to read ideas. Logs go to stderr
or the configured log file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := newEnv(ctx, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			d := e.newDashboard(e.newChannel())
			defer d.Close()
			d.Start(ctx)

			opts := []mcp.Option{
				mcp.WithDefaultSources(e.cfg.Sources),
				mcp.WithStartLimiter(ratelimit.New(ratelimit.Rule{
					Every: e.cfg.MCPStartInterval,
					Burst: e.cfg.MCPStartBurst,
				})),
			}
			if e.history != nil {
				opts = append(opts, mcp.WithHistory(e.history))
			}
			srv := mcp.New(d, e.logger, Version, opts...)
			if err := srv.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("mcp: %w", err)
			}
			return nil
		},
	}
}
