package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	output string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "ideaforge",
		Short: "Terminal client for the IdeaForge research backend",
		Long: `IdeaForge sends data-source agents (Google Trends, Hacker News, Reddit, ...)
to mine a topic, then scores the business ideas an LLM synthesises from
their findings.

This client starts and follows research runs, browses ideas, manages agents
and LLM settings, and serves the same operations to AI agents over MCP.

Configuration is read from ideaforge.toml (or $IDEAFORGE_CONFIG), then the
environment; a .env file in the working directory is loaded first.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case outputTable, outputJSON, outputYAML:
				return nil
			default:
				return fmt.Errorf("invalid --output %q: must be table, json or yaml", opts.output)
			}
		},
	}
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", outputTable, "Output format: table, json or yaml")
	root.Version = Version
	root.SetVersionTemplate("ideaforge {{.Version}}\n")

	root.AddCommand(
		newResearchCmd(opts),
		newIdeasCmd(opts),
		newAgentsCmd(opts),
		newSettingsCmd(opts),
		newHistoryCmd(opts),
		newHealthCmd(opts),
		newWatchCmd(),
		newMCPCmd(),
	)
	return root
}
