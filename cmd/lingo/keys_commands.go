package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lingo/internal/catalog"
	"lingo/internal/services/backend"
)

func newKeysCommand(ctx *commandContext) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage backend API keys",
	}

	keysCmd.AddCommand(newKeysListCommand(ctx))
	keysCmd.AddCommand(newKeysCreateCommand(ctx))
	keysCmd.AddCommand(newKeysDeleteCommand(ctx))

	return keysCmd
}

func newKeysListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			opts, err := ctx.callOptions()
			if err != nil {
				return err
			}
			keys, err := client.ListKeys(cmd.Context(), opts...)
			if err != nil {
				return fmt.Errorf("list keys: %w", err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, keys)
			}

			out := cmd.OutOrStdout()
			if len(keys) == 0 {
				fmt.Fprintln(out, "No API keys")
				return nil
			}
			rows := make([][]string, 0, len(keys))
			for _, key := range keys {
				labels := make([]string, 0, len(key.Scopes))
				for _, scope := range key.Scopes {
					labels = append(labels, catalog.ScopeLabel(scope))
				}
				rows = append(rows, []string{
					key.ID,
					key.Name,
					valueOrDash(strings.Join(labels, ", ")),
					key.Status,
					formatTimestamp(key.Created.Time),
				})
			}
			fmt.Fprint(out, renderTable(out,
				[]string{"ID", "Name", "Scopes", "Status", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			fmt.Fprintln(out)
			return nil
		},
	}
}

func newKeysCreateCommand(ctx *commandContext) *cobra.Command {
	var name string
	var scopes []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key and print its secret once",
		RunE: func(cmd *cobra.Command, args []string) error {
			name = strings.TrimSpace(name)
			if name == "" {
				return errors.New("--name is required")
			}
			validated, err := catalog.ValidateScopes(scopes)
			if err != nil {
				return err
			}

			client, err := ctx.client()
			if err != nil {
				return err
			}
			opts, err := ctx.callOptions()
			if err != nil {
				return err
			}
			created, err := client.CreateKey(cmd.Context(), name, validated, opts...)
			if err != nil {
				return fmt.Errorf("create key: %w", err)
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, created)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created key %q (%s)\n", created.Name, created.ID)
			fmt.Fprintf(out, "Scopes: %s\n", strings.Join(created.Scopes, ", "))
			if created.Secret == "" {
				fmt.Fprintln(out, "The backend did not return a secret for this key")
				return nil
			}
			fmt.Fprintf(out, "Secret: %s\n", created.Secret)
			fmt.Fprintln(out, "Copy the secret now; it cannot be shown again.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name for the key")
	cmd.Flags().StringSliceVarP(&scopes, "scope", "s", []string{catalog.DefaultScope}, "Scopes to grant (repeatable or comma separated)")
	return cmd
}

func newKeysDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <key-id>",
		Aliases: []string{"rm", "revoke"},
		Short:   "Delete an API key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyID := strings.TrimSpace(args[0])
			client, err := ctx.client()
			if err != nil {
				return err
			}
			opts, err := ctx.callOptions()
			if err != nil {
				return err
			}
			if err := client.DeleteKey(cmd.Context(), keyID, opts...); err != nil {
				if errors.Is(err, backend.ErrNotFound) {
					return fmt.Errorf("key %s not found", keyID)
				}
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{"id": keyID, "deleted": true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted key %s\n", keyID)
			return nil
		},
	}
}
