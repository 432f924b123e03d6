package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			opts, err := ctx.callOptions()
			if err != nil {
				return err
			}
			health, err := client.Health(cmd.Context(), opts...)
			if err != nil {
				return fmt.Errorf("health check: %w", err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{
					"base_url": client.BaseURL(),
					"status":   health.Status,
					"ok":       health.OK(),
				})
			}
			if !health.OK() {
				return fmt.Errorf("backend at %s reported status %q", client.BaseURL(), health.Status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backend %s is healthy (status %s)\n", client.BaseURL(), health.Status)
			return nil
		},
	}
}
