package main

import (
	"bufio"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lingo/internal/testsupport"
)

func TestJobsStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.AddJob("job-42", "hi", "DONE")

	out, _, err := env.run(t, "jobs", "status", "job-42")
	if err != nil {
		t.Fatalf("jobs status: %v", err)
	}
	requireContains(t, out, "Job:        job-42")
	requireContains(t, out, "Status:     DONE")
	requireContains(t, out, "/media/jobs/job-42/out.srt")

	out, _, err = env.run(t, "--json", "jobs", "status", "job-42")
	if err != nil {
		t.Fatalf("jobs status --json: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		t.Fatalf("decode: %v (%s)", err, out)
	}
	if raw["status"] != "DONE" || raw["job_id"] != "job-42" {
		t.Fatalf("unexpected raw payload %v", raw)
	}
	if _, ok := raw["dubbed_audio_url"]; !ok {
		t.Fatal("expected raw payload to keep null fields")
	}
}

func TestJobsStatusNotFound(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := env.run(t, "jobs", "status", "missing")
	if err == nil {
		t.Fatal("expected error for unknown job")
	}
	requireContains(t, err.Error(), "job missing not found")
}

func TestJobsWatchGivesUpAtAttemptCeiling(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.AddJob("stuck", "hi", "RUNNING")

	out, _, err := env.run(t, "jobs", "watch", "stuck", "--interval", "1ms", "--max-attempts", "3")
	if err == nil {
		t.Fatal("expected gave-up error")
	}
	requireContains(t, err.Error(), "gave up waiting for job stuck after 3 status checks")
	requireContains(t, out, "still RUNNING after 3 attempts; gave up waiting")
	if n := env.backend.JobFetches("stuck"); n != 3 {
		t.Fatalf("expected exactly 3 fetches, got %d", n)
	}
}

func TestJobsWatchReportsServerFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.AddJob("bad", "fr", "RUNNING", "ERROR")

	out, _, err := env.run(t, "jobs", "watch", "bad", "--interval", "1ms")
	if err == nil {
		t.Fatal("expected failure error")
	}
	requireContains(t, err.Error(), "job bad did not complete")
	requireContains(t, out, "ERROR  (attempt 2/200)  error: pipeline failed")
}

func TestJobsWatchStopsOnFetchError(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.AddJob("flaky", "es", "RUNNING")
	env.backend.FailJobAt("flaky", 2, http.StatusInternalServerError)

	out, _, err := env.run(t, "jobs", "watch", "flaky", "--interval", "1ms")
	if err == nil {
		t.Fatal("expected fetch error")
	}
	requireContains(t, out, "fetch failed on attempt 2")
	if n := env.backend.JobFetches("flaky"); n != 2 {
		t.Fatalf("expected polling to stop after 2 fetches, got %d", n)
	}
}

func TestJobsWatchStreamsJSONEvents(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.AddJob("a", "hi", "RUNNING", "DONE")
	env.backend.AddJob("b", "ta", "DONE")

	out, _, err := env.run(t, "--json", "jobs", "watch", "a", "b", "--interval", "1ms")
	if err != nil {
		t.Fatalf("jobs watch: %v", err)
	}

	finals := map[string]string{}
	lines := 0
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var ev eventView
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("decode line %q: %v", scanner.Text(), err)
		}
		lines++
		if ev.Event == "done" {
			finals[ev.JobID] = ev.Status
			if len(ev.Result) == 0 {
				t.Fatalf("expected result payload on done event for %s", ev.JobID)
			}
		}
	}
	if lines != 3 {
		t.Fatalf("expected 3 events, got %d (%s)", lines, out)
	}
	if finals["a"] != "DONE" || finals["b"] != "DONE" {
		t.Fatalf("unexpected finals %v", finals)
	}
}

func TestJobsCommandsTolerateUnusableHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	dbDir := filepath.Join(env.baseDir, "not-a-database")
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	env.cfg.Paths.Database = dbDir
	writeTestConfig(t, env.configPath, env.cfg)
	env.backend.AddJob("ok-job", "hi", "DONE")

	out, _, err := env.run(t, "jobs", "watch", "ok-job", "--interval", "1ms")
	if err != nil {
		t.Fatalf("jobs watch: %v", err)
	}
	requireContains(t, out, "DONE")
	if n := env.backend.JobFetches("ok-job"); n != 1 {
		t.Fatalf("expected 1 fetch, got %d", n)
	}

	out, _, err = env.run(t, "jobs", "status", "ok-job")
	if err != nil {
		t.Fatalf("jobs status: %v", err)
	}
	requireContains(t, out, "Status:     DONE")

	if _, _, err := env.run(t, "jobs", "list"); err == nil {
		t.Fatal("expected jobs list to report the unusable history")
	}
}

func TestJobsListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "jobs", "list")
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, out, "No jobs recorded yet")
}

func TestWaitUsesConfiguredAttemptCeiling(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithPoll(1, 2))
	env.backend.SetScript("PENDING", "RUNNING")

	out, _, err := env.run(t, "translate", "url", "https://example.com/long.mp4", "--to", "ko", "--wait", "--interval", "1ms")
	if err == nil {
		t.Fatal("expected gave-up error")
	}
	ids := env.backend.JobIDs()
	if len(ids) != 1 {
		t.Fatalf("expected one job, got %v", ids)
	}
	requireContains(t, err.Error(), "gave up waiting for job "+ids[0]+" after 2 status checks")
	requireContains(t, out, "(attempt 2/2)")
	if n := env.backend.JobFetches(ids[0]); n != 2 {
		t.Fatalf("expected 2 fetches, got %d", n)
	}
}
