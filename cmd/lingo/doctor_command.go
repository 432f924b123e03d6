package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"lingo/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, backend reachability, API key and local state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts, err := ctx.callOptions()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, opts...)

			if ctx.jsonOutput() {
				type resultView struct {
					Name   string `json:"name"`
					Passed bool   `json:"passed"`
					Detail string `json:"detail"`
				}
				views := make([]resultView, 0, len(results))
				for _, r := range results {
					views = append(views, resultView{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
				}
				if err := writeJSON(cmd, views); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					state := "ok"
					if !r.Passed {
						state = "FAIL"
					}
					rows = append(rows, []string{r.Name, state, r.Detail})
				}
				fmt.Fprint(out, renderTable(out, []string{"Check", "Result", "Detail"}, rows, nil))
				fmt.Fprintln(out)
			}

			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}
