package main

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/spf13/cobra"

	"lingo/internal/services/backend"
	"lingo/internal/session"
)

func newSessionCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newLoginCommand(ctx),
		newLogoutCommand(ctx),
		newWhoamiCommand(ctx),
	}
}

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var email string
	var apiKey string
	var skipVerify bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Remember an operator identity and API key on this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := mail.ParseAddress(strings.TrimSpace(email))
			if err != nil {
				return fmt.Errorf("invalid --email: %w", err)
			}
			key := strings.TrimSpace(apiKey)
			if key == "" && ctx.keyFlag != nil {
				key = strings.TrimSpace(*ctx.keyFlag)
			}

			if key != "" && !skipVerify {
				client, err := ctx.client()
				if err != nil {
					return err
				}
				if _, err := client.ListKeys(cmd.Context(), backend.WithAPIKey(key)); err != nil {
					if errors.Is(err, backend.ErrUnauthorized) {
						return errors.New("the backend rejected the API key; check it or pass --no-verify")
					}
					return fmt.Errorf("verify api key: %w", err)
				}
			}

			store, err := ctx.sessionStore()
			if err != nil {
				return err
			}
			rec := session.Record{Email: addr.Address, APIKey: key}
			if err := store.Set(rec); err != nil {
				return fmt.Errorf("save session: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Logged in as %s\n", addr.Address)
			if key == "" {
				fmt.Fprintln(out, "No API key stored; commands use the configured key or --key")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Operator email address")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key to use for subsequent commands")
	cmd.Flags().BoolVar(&skipVerify, "no-verify", false, "Store the key without checking it against the backend")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.sessionStore()
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return fmt.Errorf("clear session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.sessionStore()
			if err != nil {
				return err
			}
			rec, err := store.Get()
			if err != nil {
				return fmt.Errorf("read session: %w", err)
			}

			if ctx.jsonOutput() {
				payload := map[string]any{"logged_in": rec.LoggedIn()}
				if rec.LoggedIn() {
					payload["email"] = rec.Email
					payload["api_key"] = rec.MaskedKey()
					payload["logged_in_at"] = rec.LoggedInAt
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			if !rec.LoggedIn() {
				fmt.Fprintln(out, "Not logged in")
				return nil
			}
			fmt.Fprintf(out, "Email:       %s\n", rec.Email)
			fmt.Fprintf(out, "API key:     %s\n", valueOrDash(rec.MaskedKey()))
			fmt.Fprintf(out, "Logged in:   %s\n", formatTimestamp(rec.LoggedInAt))
			fmt.Fprintf(out, "Session:     %s\n", store.Path())
			return nil
		},
	}
}
