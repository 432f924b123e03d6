package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"lingo/internal/catalog"
	"lingo/internal/fileutil"
	"lingo/internal/history"
	"lingo/internal/logging"
	"lingo/internal/services/backend"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	translateCmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate text, audio, video or a remote video URL",
	}

	translateCmd.AddCommand(newTranslateTextCommand(ctx))
	translateCmd.AddCommand(newTranslateFileCommand(ctx, history.KindAudio))
	translateCmd.AddCommand(newTranslateFileCommand(ctx, history.KindVideo))
	translateCmd.AddCommand(newTranslateURLCommand(ctx))

	return translateCmd
}

func newTranslateTextCommand(ctx *commandContext) *cobra.Command {
	var target string
	var source string

	cmd := &cobra.Command{
		Use:   "text <text...>",
		Short: "Translate a piece of text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targetCode, err := catalog.ResolveTarget(target)
			if err != nil {
				return err
			}
			if targetCode == catalog.BatchTarget {
				return fmt.Errorf("%s is only supported for video and url translations", catalog.BatchTarget)
			}
			sourceCode, err := catalog.ResolveSource(source)
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
			result, err := client.Translate(cmd.Context(), backend.TextRequest{
				Text:       strings.Join(args, " "),
				SourceLang: sourceCode,
				TargetLang: targetCode,
			}, opts...)
			if err != nil {
				return fmt.Errorf("translate text: %w", err)
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			if result.SourceLang != "" && !strings.EqualFold(result.SourceLang, backend.AutoDetect) {
				fmt.Fprintf(out, "%s -> %s\n", catalog.DisplayName(result.SourceLang), catalog.DisplayName(targetCode))
			}
			fmt.Fprintln(out, result.Translation)
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "to", "t", "", "Target language name or code")
	cmd.Flags().StringVarP(&source, "from", "f", "", "Source language name or code (default auto-detect)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newTranslateFileCommand(ctx *commandContext, kind string) *cobra.Command {
	var target string
	var wait bool
	var poll pollSettings

	cmd := &cobra.Command{
		Use:   kind + " <file>",
		Short: fmt.Sprintf("Upload a %s file for translation", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targetCode, err := catalog.ResolveTarget(target)
			if err != nil {
				return err
			}
			if kind == history.KindAudio && targetCode == catalog.BatchTarget {
				return fmt.Errorf("%s is only supported for video and url translations", catalog.BatchTarget)
			}

			path := strings.TrimSpace(args[0])
			file, info, err := fileutil.OpenRegular(path)
			if err != nil {
				return fmt.Errorf("open %s file: %w", kind, err)
			}
			defer file.Close()

			client, err := ctx.client()
			if err != nil {
				return err
			}
			opts, err := ctx.callOptions()
			if err != nil {
				return err
			}

			upload := backend.FileUpload{Filename: filepath.Base(path), Content: file, Size: info.Size()}
			var sub backend.Submission
			if kind == history.KindAudio {
				sub, err = client.TranslateAudio(cmd.Context(), upload, targetCode, opts...)
			} else {
				sub, err = client.TranslateVideo(cmd.Context(), upload, targetCode, opts...)
			}
			if err != nil {
				return fmt.Errorf("submit %s: %w", kind, err)
			}
			return ctx.handleSubmission(cmd, submissionInfo{
				kind:   kind,
				target: targetCode,
				source: filepath.Base(path),
				sub:    sub,
			}, wait, poll, opts)
		},
	}

	cmd.Flags().StringVarP(&target, "to", "t", "", "Target language name or code")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll the job until it finishes")
	poll.register(cmd)
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newTranslateURLCommand(ctx *commandContext) *cobra.Command {
	var target string
	var wait bool
	var poll pollSettings

	cmd := &cobra.Command{
		Use:   "url <video-url>",
		Short: "Translate a remotely hosted video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targetCode, err := catalog.ResolveTarget(target)
			if err != nil {
				return err
			}
			videoURL := strings.TrimSpace(args[0])

			client, err := ctx.client()
			if err != nil {
				return err
			}
			opts, err := ctx.callOptions()
			if err != nil {
				return err
			}
			sub, err := client.TranslateVideoURL(cmd.Context(), videoURL, targetCode, opts...)
			if err != nil {
				return fmt.Errorf("submit video url: %w", err)
			}
			return ctx.handleSubmission(cmd, submissionInfo{
				kind:   history.KindVideoURL,
				target: targetCode,
				source: videoURL,
				sub:    sub,
			}, wait, poll, opts)
		},
	}

	cmd.Flags().StringVarP(&target, "to", "t", "", "Target language name or code, or "+catalog.BatchTarget)
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll the job(s) until they finish")
	poll.register(cmd)
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

type submissionInfo struct {
	kind   string
	target string
	source string
	sub    backend.Submission
}

func (c *commandContext) handleSubmission(cmd *cobra.Command, info submissionInfo, wait bool, poll pollSettings, opts []backend.CallOption) error {
	out := cmd.OutOrStdout()

	if !info.sub.Async() {
		result, err := info.sub.Result()
		if err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
		if c.jsonOutput() {
			return writeJSON(cmd, info.sub.Raw)
		}
		printJobDetail(out, result, shouldColorize(out))
		return nil
	}

	ids := info.sub.IDs()
	c.recordSubmissions(cmd, info, ids)

	if wait {
		return c.watchJobs(cmd, ids, poll, opts)
	}

	if c.jsonOutput() {
		return writeJSON(cmd, map[string]any{
			"job_ids": ids,
			"status":  info.sub.Status,
			"detail":  info.sub.Detail,
		})
	}
	if len(ids) == 1 {
		fmt.Fprintf(out, "Queued job %s (target %s)\n", ids[0], info.target)
	} else {
		fmt.Fprintf(out, "Queued %d jobs (target %s)\n", len(ids), info.target)
		for _, id := range ids {
			fmt.Fprintf(out, "  %s\n", id)
		}
	}
	fmt.Fprintf(out, "Follow progress with: lingo jobs watch %s\n", strings.Join(ids, " "))
	return nil
}

// recordSubmissions adds queued jobs to the local ledger. Failures are logged,
// not returned.
func (c *commandContext) recordSubmissions(cmd *cobra.Command, info submissionInfo, ids []string) {
	logger := c.commandLogger(cmd)
	err := c.withHistory(func(store *history.Store) error {
		var errs []error
		for _, id := range ids {
			target := info.target
			if len(ids) > 1 {
				target = ""
			}
			errs = append(errs, store.RecordSubmission(cmd.Context(), history.JobRecord{
				JobID:      id,
				Kind:       info.kind,
				TargetLang: target,
				Source:     info.source,
				Status:     info.sub.Status,
			}))
		}
		return errors.Join(errs...)
	})
	if err != nil {
		logger.Warn("record submission in history", logging.Error(err))
	}
}
