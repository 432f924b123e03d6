package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"lingo/internal/jobs"
	"lingo/internal/services/backend"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func colorStatus(status string, colorize bool) string {
	label := strings.ToUpper(strings.TrimSpace(status))
	if label == "" {
		label = "UNKNOWN"
	}
	if !colorize {
		return label
	}
	switch label {
	case backend.StatusDone:
		return text.FgGreen.Sprint(label)
	case backend.StatusError:
		return text.FgRed.Sprint(label)
	case backend.StatusRunning:
		return text.FgCyan.Sprint(label)
	default:
		return text.FgYellow.Sprint(label)
	}
}

func formatEventLine(ev jobs.Event, maxAttempts int, colorize bool) string {
	stamp := ev.At.Local().Format("15:04:05")
	switch ev.Kind {
	case jobs.EventError:
		return fmt.Sprintf("[%s] %s  fetch failed on attempt %d: %v", stamp, ev.JobID, ev.Attempt, ev.Err)
	case jobs.EventGaveUp:
		return fmt.Sprintf("[%s] %s  still %s after %d attempts; gave up waiting", stamp, ev.JobID, colorStatus(ev.Status.Status, colorize), ev.Attempt)
	}
	line := fmt.Sprintf("[%s] %s  %s  (attempt %d/%d)", stamp, ev.JobID, colorStatus(ev.Status.Status, colorize), ev.Attempt, maxAttempts)
	switch ev.Kind {
	case jobs.EventFailed:
		if msg := strings.TrimSpace(ev.Status.Error); msg != "" {
			line += "  error: " + msg
		}
	case jobs.EventDone:
		if outputs := ev.Status.Outputs(); len(outputs) > 0 {
			line += "  outputs: " + strings.Join(sortedKeys(outputs), ", ")
		}
	}
	return line
}

type eventView struct {
	JobID   string          `json:"job_id"`
	Event   string          `json:"event"`
	Attempt int             `json:"attempt"`
	Status  string          `json:"status,omitempty"`
	Error   string          `json:"error,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	At      time.Time       `json:"at"`
}

func newEventView(ev jobs.Event) eventView {
	view := eventView{
		JobID:   ev.JobID,
		Event:   ev.Kind.String(),
		Attempt: ev.Attempt,
		Status:  ev.Status.Status,
		At:      ev.At.UTC(),
	}
	if ev.Err != nil {
		view.Error = ev.Err.Error()
	}
	if ev.Kind == jobs.EventDone || ev.Kind == jobs.EventFailed {
		view.Result = ev.Status.Raw
	}
	return view
}

// printJobDetail writes the human form of a job snapshot.
func printJobDetail(out io.Writer, status backend.JobStatus, colorize bool) {
	fmt.Fprintf(out, "Job:        %s\n", status.JobID)
	fmt.Fprintf(out, "Status:     %s\n", colorStatus(status.Status, colorize))
	if status.TargetLang != "" {
		fmt.Fprintf(out, "Target:     %s\n", status.TargetLang)
	}
	if status.Error != "" {
		fmt.Fprintf(out, "Error:      %s\n", status.Error)
	}
	if status.TranscriptText != "" {
		fmt.Fprintf(out, "Transcript: %s\n", status.TranscriptText)
	}
	if status.TranslationText != "" {
		fmt.Fprintf(out, "Translated: %s\n", status.TranslationText)
	}
	outputs := status.Outputs()
	for _, kind := range sortedKeys(outputs) {
		fmt.Fprintf(out, "  %-13s %s\n", kind+":", outputs[kind])
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 3 || len([]rune(s)) <= limit {
		return s
	}
	return string([]rune(s)[:limit-3]) + "..."
}
