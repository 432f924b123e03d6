package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lingo/internal/history"
	"lingo/internal/jobs"
	"lingo/internal/logging"
	"lingo/internal/services"
	"lingo/internal/services/backend"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect translation jobs",
	}

	jobsCmd.AddCommand(newJobsStatusCommand(ctx))
	jobsCmd.AddCommand(newJobsWatchCommand(ctx))
	jobsCmd.AddCommand(newJobsListCommand(ctx))

	return jobsCmd
}

func newJobsStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Fetch the current status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := strings.TrimSpace(args[0])
			client, err := ctx.client()
			if err != nil {
				return err
			}
			opts, err := ctx.callOptions()
			if err != nil {
				return err
			}
			reqCtx := services.WithJobID(cmd.Context(), jobID)
			status, err := client.JobStatus(reqCtx, jobID, opts...)
			if err != nil {
				if errors.Is(err, backend.ErrNotFound) {
					return fmt.Errorf("job %s not found on the backend", jobID)
				}
				return fmt.Errorf("job status: %w", err)
			}

			if err := ctx.withHistory(func(store *history.Store) error {
				ctx.updateLedger(cmd, store, status)
				return nil
			}); err != nil {
				ctx.commandLogger(cmd).Warn("update job history",
					logging.String(logging.FieldJobID, jobID),
					logging.Error(err),
				)
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, status.Raw)
			}
			out := cmd.OutOrStdout()
			printJobDetail(out, status, shouldColorize(out))
			return nil
		},
	}
}

func newJobsWatchCommand(ctx *commandContext) *cobra.Command {
	var poll pollSettings

	cmd := &cobra.Command{
		Use:   "watch <job-id>...",
		Short: "Poll jobs until they finish, printing one line per status check",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]string, 0, len(args))
			for _, arg := range args {
				if id := strings.TrimSpace(arg); id != "" {
					ids = append(ids, id)
				}
			}
			if len(ids) == 0 {
				return errors.New("at least one job id is required")
			}
			opts, err := ctx.callOptions()
			if err != nil {
				return err
			}
			return ctx.watchJobs(cmd, ids, poll, opts)
		},
	}

	poll.register(cmd)
	return cmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs submitted from this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				records, err := store.ListJobs(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, jobRecordViews(records))
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No jobs recorded yet")
					return nil
				}
				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					rows = append(rows, []string{
						rec.JobID,
						rec.Kind,
						valueOrDash(rec.TargetLang),
						colorStatus(rec.Status, colorize),
						truncate(rec.Source, 40),
						formatTimestamp(rec.UpdatedAt),
					})
				}
				fmt.Fprint(out, renderTable(out,
					[]string{"Job", "Kind", "Target", "Status", "Source", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				fmt.Fprintln(out)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to show")
	return cmd
}

type jobRecordView struct {
	JobID      string          `json:"job_id"`
	Kind       string          `json:"kind"`
	TargetLang string          `json:"target_lang,omitempty"`
	Source     string          `json:"source,omitempty"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	CreatedAt  string          `json:"created_at"`
	UpdatedAt  string          `json:"updated_at"`
}

func jobRecordViews(records []history.JobRecord) []jobRecordView {
	views := make([]jobRecordView, 0, len(records))
	for _, rec := range records {
		views = append(views, jobRecordView{
			JobID:      rec.JobID,
			Kind:       rec.Kind,
			TargetLang: rec.TargetLang,
			Source:     rec.Source,
			Status:     rec.Status,
			Error:      rec.Error,
			Result:     rec.Result,
			CreatedAt:  rec.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			UpdatedAt:  rec.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return views
}

// watchJobs polls every id concurrently and prints one line per event. It
// returns an error unless every job finished DONE.
func (c *commandContext) watchJobs(cmd *cobra.Command, ids []string, settings pollSettings, opts []backend.CallOption) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	poller, err := c.poller(client, settings, opts)
	if err != nil {
		return err
	}

	tasks := make([]*jobs.Task, 0, len(ids))
	for _, id := range ids {
		tasks = append(tasks, poller.Start(services.WithJobID(cmd.Context(), id), id))
	}

	events := jobs.Merge(tasks...)
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	var gaveUp, failed []string

	store := c.openLedger(cmd)
	if store != nil {
		defer store.Close()
	}
	for ev := range events {
		if c.jsonOutput() {
			if err := writeJSONLine(cmd, newEventView(ev)); err != nil {
				for _, task := range tasks {
					task.Cancel()
				}
				for range events {
				}
				return err
			}
		} else {
			fmt.Fprintln(out, formatEventLine(ev, poller.MaxAttempts(), colorize))
		}
		if store != nil && ev.Kind != jobs.EventError {
			c.updateLedger(cmd, store, ev.Status)
		}
		switch ev.Kind {
		case jobs.EventGaveUp:
			gaveUp = append(gaveUp, ev.JobID)
		case jobs.EventFailed, jobs.EventError:
			failed = append(failed, ev.JobID)
		}
	}
	if err := cmd.Context().Err(); err != nil {
		return err
	}

	switch {
	case len(gaveUp) > 0:
		return fmt.Errorf("gave up waiting for %s after %d status checks; the backend may still be working, check later with `lingo jobs status %s`",
			pluralJobs(gaveUp), poller.MaxAttempts(), gaveUp[0])
	case len(failed) > 0:
		return fmt.Errorf("%s did not complete", pluralJobs(failed))
	}
	if !c.jsonOutput() && len(ids) == 1 {
		if last, ok := tasks[0].Wait(); ok && last.Kind == jobs.EventDone {
			printJobDetail(out, last.Status, colorize)
		}
	}
	return nil
}

func (c *commandContext) updateLedger(cmd *cobra.Command, store *history.Store, status backend.JobStatus) {
	var result json.RawMessage
	if status.Terminal() {
		result = status.Raw
	}
	err := store.UpdateStatus(cmd.Context(), status.JobID, status.Status, result, status.Error)
	if err != nil && !errors.Is(err, history.ErrNotFound) {
		c.commandLogger(cmd).Warn("update job history",
			logging.String(logging.FieldJobID, status.JobID),
			logging.Error(err),
		)
	}
}

func pluralJobs(ids []string) string {
	if len(ids) == 1 {
		return "job " + ids[0]
	}
	return strconv.Itoa(len(ids)) + " jobs (" + strings.Join(ids, ", ") + ")"
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
