package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lingo/internal/history"
)

func newFeedbackCommand(ctx *commandContext) *cobra.Command {
	feedbackCmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record notes about translation quality or the tool",
	}

	feedbackCmd.AddCommand(newFeedbackSubmitCommand(ctx))
	feedbackCmd.AddCommand(newFeedbackListCommand(ctx))

	return feedbackCmd
}

func newFeedbackSubmitCommand(ctx *commandContext) *cobra.Command {
	var category string
	var email string

	cmd := &cobra.Command{
		Use:   "submit <text...>",
		Short: "Save a feedback note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				if store, err := ctx.sessionStore(); err == nil {
					if rec, err := store.Get(); err == nil {
						email = rec.Email
					}
				}
			}
			return ctx.withHistory(func(store *history.Store) error {
				fb, err := store.AddFeedback(cmd.Context(), category, strings.Join(args, " "), email)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, fb)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Thanks! Saved %s feedback %s\n", fb.Category, fb.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", history.FeedbackResults,
		"One of "+strings.Join(history.FeedbackCategories, ", "))
	cmd.Flags().StringVar(&email, "email", "", "Contact email (default: the logged-in email)")
	return cmd
}

func newFeedbackListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved feedback, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				items, err := store.ListFeedback(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if items == nil {
						items = []history.Feedback{}
					}
					return writeJSON(cmd, items)
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No feedback recorded")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, fb := range items {
					rows = append(rows, []string{
						formatTimestamp(fb.CreatedAt),
						fb.Category,
						valueOrDash(fb.Email),
						truncate(fb.Body, 60),
					})
				}
				fmt.Fprint(out, renderTable(out,
					[]string{"When", "Category", "Email", "Feedback"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				))
				fmt.Fprintln(out)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of notes to show")
	return cmd
}
