package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lingo/internal/catalog"
)

func newLanguagesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "languages",
		Short:       "List supported target languages",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			languages := catalog.Languages()
			if ctx.jsonOutput() {
				type languageView struct {
					Name   string `json:"name"`
					Code   string `json:"code"`
					Native string `json:"native,omitempty"`
				}
				views := make([]languageView, 0, len(languages))
				for _, lang := range languages {
					views = append(views, languageView{Name: lang.Name, Code: lang.Code, Native: lang.Native()})
				}
				return writeJSON(cmd, map[string]any{
					"languages":    views,
					"batch_target": catalog.BatchTarget,
				})
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(languages))
			for _, lang := range languages {
				rows = append(rows, []string{lang.Name, lang.Code, valueOrDash(lang.Native())})
			}
			fmt.Fprint(out, renderTable(out, []string{"Language", "Code", "Native"}, rows, nil))
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Use --to %s with video and url translations to queue one job per language.\n", catalog.BatchTarget)
			return nil
		},
	}
}

func newScopesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "scopes",
		Short:       "List API key scopes",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			scopes := catalog.Scopes()
			if ctx.jsonOutput() {
				type scopeView struct {
					ID          string `json:"id"`
					Label       string `json:"label"`
					Description string `json:"description"`
					Default     bool   `json:"default"`
				}
				views := make([]scopeView, 0, len(scopes))
				for _, scope := range scopes {
					views = append(views, scopeView{
						ID:          scope.ID,
						Label:       scope.Label,
						Description: scope.Description,
						Default:     scope.ID == catalog.DefaultScope,
					})
				}
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(scopes))
			for _, scope := range scopes {
				rows = append(rows, []string{scope.ID, scope.Label, scope.Description, yesNo(scope.ID == catalog.DefaultScope)})
			}
			fmt.Fprint(out, renderTable(out, []string{"Scope", "Label", "Description", "Default"}, rows, nil))
			fmt.Fprintln(out)
			return nil
		},
	}
}
