package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/ideaforge/internal/client"
	"github.com/ashita-ai/ideaforge/internal/model"
)

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	c := &cobra.Command{
		Use:   "settings",
		Short: "Backend settings",
	}
	llm := &cobra.Command{
		Use:   "llm",
		Short: "LLM provider used to synthesise ideas",
	}
	llm.AddCommand(newSettingsLLMGetCmd(opts), newSettingsLLMSetCmd(opts))
	c.AddCommand(llm)
	return c
}

func newSettingsLLMGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the available providers and the active one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := newEnv(ctx, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			d := e.newDashboard(nil)
			defer d.Close()
			if err := d.LoadSettings(ctx); err != nil {
				return err
			}
			snap := d.Settings().Snapshot()
			st := model.LLMSettings{CurrentProvider: snap.CurrentProvider, Providers: snap.Providers}
			return render(cmd.OutOrStdout(), opts, st, func(w io.Writer) {
				fmt.Fprintln(w, "\tPROVIDER\tMODEL\tCOST\tSPEED\tKEY")
				for _, p := range st.Providers {
					marker := ""
					if p.ID == st.CurrentProvider {
						marker = "*"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						marker, p.ID, orDash(p.Model), orDash(p.Cost), orDash(p.Speed), yesNo(p.HasAPIKey))
				}
			})
		},
	}
}

func newSettingsLLMSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <provider>",
		Short: "Switch the active provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := newEnv(ctx, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			d := e.newDashboard(nil)
			defer d.Close()
			if err := d.SelectProvider(ctx, args[0]); err != nil {
				return err
			}
			result := map[string]string{"current_provider": d.Settings().CurrentProvider()}
			return render(cmd.OutOrStdout(), opts, result, func(w io.Writer) {
				fmt.Fprintf(w, "LLM provider set to %s\n", result["current_provider"])
			})
		},
	}
}

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := newEnv(ctx, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			h, err := e.client.Health(ctx)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, h, func(w io.Writer) {
				writeHealth(w, h)
			})
		},
	}
}

func writeHealth(w io.Writer, h *client.HealthResponse) {
	fmt.Fprintf(w, "%s\t%s\n", orDash(h.Service), h.Status)
}
