package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lingo/internal/catalog"
	"lingo/internal/history"
)

func newGlossaryCommand(ctx *commandContext) *cobra.Command {
	glossaryCmd := &cobra.Command{
		Use:   "glossary",
		Short: "Maintain preferred translations for recurring terms",
	}

	glossaryCmd.AddCommand(newGlossaryAddCommand(ctx))
	glossaryCmd.AddCommand(newGlossarySetCommand(ctx))
	glossaryCmd.AddCommand(newGlossaryListCommand(ctx))
	glossaryCmd.AddCommand(newGlossaryRemoveCommand(ctx))

	return glossaryCmd
}

func newGlossaryAddCommand(ctx *commandContext) *cobra.Command {
	var category string
	var pairs []string

	cmd := &cobra.Command{
		Use:   "add <term>",
		Short: "Add a glossary term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			translations, err := parseTranslationPairs(pairs)
			if err != nil {
				return err
			}
			return ctx.withHistory(func(store *history.Store) error {
				term, err := store.AddTerm(cmd.Context(), args[0], category, translations)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, term)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %q [%s] with %d translation(s) (id %s)\n",
					term.Term, term.Category, len(term.Translations), term.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Term category (default "+history.DefaultCategory+")")
	cmd.Flags().StringArrayVar(&pairs, "tr", nil, "Translation as lang=value (repeatable)")
	return cmd
}

func newGlossarySetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <term-id> <lang> [value]",
		Short: "Set a term's translation for one language (omit value to clear it)",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := resolveGlossaryLanguage(args[1])
			if err != nil {
				return err
			}
			var value string
			if len(args) == 3 {
				value = args[2]
			}
			return ctx.withHistory(func(store *history.Store) error {
				if err := store.SetTranslation(cmd.Context(), args[0], lang, value); err != nil {
					if errors.Is(err, history.ErrNotFound) {
						return fmt.Errorf("glossary term %s not found", args[0])
					}
					return err
				}
				if strings.TrimSpace(value) == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s translation\n", catalog.DisplayName(lang))
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Set %s translation\n", catalog.DisplayName(lang))
				}
				return nil
			})
		},
	}
}

func newGlossaryListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list [query]",
		Short: "List glossary terms, optionally filtered",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var query string
			if len(args) == 1 {
				query = args[0]
			}
			return ctx.withHistory(func(store *history.Store) error {
				terms, err := store.ListTerms(cmd.Context(), query)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if terms == nil {
						terms = []history.Term{}
					}
					return writeJSON(cmd, terms)
				}
				out := cmd.OutOrStdout()
				if len(terms) == 0 {
					fmt.Fprintln(out, "Glossary is empty")
					return nil
				}
				rows := make([][]string, 0, len(terms))
				for _, term := range terms {
					parts := make([]string, 0, len(term.Translations))
					for _, lang := range term.Languages() {
						parts = append(parts, lang+"="+term.Translations[lang])
					}
					rows = append(rows, []string{
						term.ID,
						term.Term,
						term.Category,
						valueOrDash(truncate(strings.Join(parts, "; "), 60)),
					})
				}
				fmt.Fprint(out, renderTable(out,
					[]string{"ID", "Term", "Category", "Translations"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				))
				fmt.Fprintln(out)
				return nil
			})
		},
	}
}

func newGlossaryRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <term-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a glossary term",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				if err := store.DeleteTerm(cmd.Context(), args[0]); err != nil {
					if errors.Is(err, history.ErrNotFound) {
						return fmt.Errorf("glossary term %s not found", args[0])
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed glossary term %s\n", args[0])
				return nil
			})
		},
	}
}

func parseTranslationPairs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		lang, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(value) == "" {
			return nil, fmt.Errorf("invalid --tr %q (want lang=value)", pair)
		}
		code, err := resolveGlossaryLanguage(lang)
		if err != nil {
			return nil, err
		}
		out[code] = strings.TrimSpace(value)
	}
	return out, nil
}

func resolveGlossaryLanguage(input string) (string, error) {
	code, err := catalog.ResolveTarget(input)
	if err != nil {
		return "", err
	}
	if code == catalog.BatchTarget {
		return "", fmt.Errorf("%s is not a glossary language", catalog.BatchTarget)
	}
	return code, nil
}
