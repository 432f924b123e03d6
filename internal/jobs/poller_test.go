package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lingo/internal/services/backend"
)

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.waits = append(c.waits, d)
	now := c.now
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// scriptedFetcher returns statuses in order, repeating the last one, and
// records the clock time of every fetch.
type scriptedFetcher struct {
	mu       sync.Mutex
	clock    Clock
	statuses []string
	failAt   int
	failErr  error
	fetches  []time.Time
}

func (f *scriptedFetcher) JobStatus(_ context.Context, jobID string, _ ...backend.CallOption) (backend.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, f.clock.Now())
	n := len(f.fetches)
	if f.failAt > 0 && n == f.failAt {
		return backend.JobStatus{}, f.failErr
	}
	idx := n - 1
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	return backend.JobStatus{JobID: jobID, Status: f.statuses[idx]}, nil
}

func (f *scriptedFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetches)
}

func TestPollerStopsAfterDone(t *testing.T) {
	clock := newFakeClock()
	fetcher := &scriptedFetcher{clock: clock, statuses: []string{"PENDING", "PENDING", "RUNNING", "DONE"}}
	poller := NewPoller(fetcher, WithClock(clock))

	var events []Event
	for ev := range poller.Watch(context.Background(), "job-1") {
		events = append(events, ev)
	}

	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d: %+v", len(events), events)
	}
	wantKinds := []EventKind{EventStatus, EventStatus, EventStatus, EventDone}
	for i, ev := range events {
		if ev.Kind != wantKinds[i] {
			t.Fatalf("event %d kind = %s, want %s", i, ev.Kind, wantKinds[i])
		}
		if ev.Attempt != i+1 {
			t.Fatalf("event %d attempt = %d", i, ev.Attempt)
		}
		if ev.JobID != "job-1" {
			t.Fatalf("event %d job id = %q", i, ev.JobID)
		}
	}
	if got := fetcher.count(); got != 4 {
		t.Fatalf("expected 4 fetches, got %d", got)
	}
	for i := 1; i < len(fetcher.fetches); i++ {
		if gap := fetcher.fetches[i].Sub(fetcher.fetches[i-1]); gap < 3*time.Second {
			t.Fatalf("fetch %d spaced %s, want >= 3s", i+1, gap)
		}
	}
	if len(clock.waits) != 3 {
		t.Fatalf("expected 3 waits (first fetch immediate), got %d", len(clock.waits))
	}
}

func TestPollerTerminalMatchIsCaseInsensitive(t *testing.T) {
	clock := newFakeClock()
	fetcher := &scriptedFetcher{clock: clock, statuses: []string{"running", "done"}}
	final, err := NewPoller(fetcher, WithClock(clock)).Run(context.Background(), "job-ci", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if final.Kind != EventDone || fetcher.count() != 2 {
		t.Fatalf("final=%s fetches=%d", final.Kind, fetcher.count())
	}
}

func TestPollerGivesUpAtCeiling(t *testing.T) {
	clock := newFakeClock()
	fetcher := &scriptedFetcher{clock: clock, statuses: []string{"RUNNING"}}
	poller := NewPoller(fetcher, WithClock(clock), WithMaxAttempts(7))

	var statusEvents int
	final, err := poller.Run(context.Background(), "job-slow", func(ev Event) {
		if ev.Kind == EventStatus {
			statusEvents++
		}
	})
	if !errors.Is(err, ErrGaveUp) {
		t.Fatalf("expected ErrGaveUp, got %v", err)
	}
	if final.Kind != EventGaveUp {
		t.Fatalf("final kind = %s", final.Kind)
	}
	if final.Status.Status != "RUNNING" {
		t.Fatalf("gave-up event should carry last status, got %q", final.Status.Status)
	}
	if statusEvents != 7 {
		t.Fatalf("expected 7 status events, got %d", statusEvents)
	}
	if got := fetcher.count(); got != 7 {
		t.Fatalf("expected exactly 7 fetches, got %d", got)
	}
}

func TestPollerDefaultCeiling(t *testing.T) {
	clock := newFakeClock()
	fetcher := &scriptedFetcher{clock: clock, statuses: []string{"PENDING"}}
	poller := NewPoller(fetcher, WithClock(clock))
	if _, err := poller.Run(context.Background(), "job-default", nil); !errors.Is(err, ErrGaveUp) {
		t.Fatalf("expected ErrGaveUp, got %v", err)
	}
	if got := fetcher.count(); got != DefaultMaxAttempts {
		t.Fatalf("expected %d fetches, got %d", DefaultMaxAttempts, got)
	}
}

func TestPollerStopsOnFetchError(t *testing.T) {
	clock := newFakeClock()
	fetchErr := &backend.TransportError{Method: "GET", URL: "http://backend/api/jobs/job-err", Err: errors.New("connection refused")}
	fetcher := &scriptedFetcher{clock: clock, statuses: []string{"PENDING"}, failAt: 3, failErr: fetchErr}
	poller := NewPoller(fetcher, WithClock(clock))

	var events []Event
	for ev := range poller.Watch(context.Background(), "job-err") {
		events = append(events, ev)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	last := events[2]
	if last.Kind != EventError || !errors.Is(last.Err, fetchErr) {
		t.Fatalf("expected error event carrying fetch error, got %+v", last)
	}
	if !backend.IsTransport(last.Err) {
		t.Fatalf("expected transport error, got %v", last.Err)
	}
	if got := fetcher.count(); got != 3 {
		t.Fatalf("expected no 4th fetch, got %d fetches", got)
	}
}

func TestPollerReportsServerFailure(t *testing.T) {
	fetcher := FetchFunc(func(context.Context, string) (backend.JobStatus, error) {
		return backend.JobStatus{Status: "ERROR", Error: "ffmpeg exited 1"}, nil
	})
	final, err := NewPoller(fetcher, WithClock(newFakeClock())).Run(context.Background(), "job-bad", nil)
	if final.Kind != EventFailed {
		t.Fatalf("final kind = %s", final.Kind)
	}
	if !errors.Is(err, ErrJobFailed) || err.Error() != "job failed: ffmpeg exited 1" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestWatchRestartsFromFirstAttempt(t *testing.T) {
	clock := newFakeClock()
	var mu sync.Mutex
	calls := 0
	fetcher := FetchFunc(func(context.Context, string) (backend.JobStatus, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls%2 == 0 {
			return backend.JobStatus{Status: "DONE"}, nil
		}
		return backend.JobStatus{Status: "PENDING"}, nil
	})
	seq := NewPoller(fetcher, WithClock(clock)).Watch(context.Background(), "job-r")

	for round := 0; round < 2; round++ {
		var attempts []int
		for ev := range seq {
			attempts = append(attempts, ev.Attempt)
		}
		if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
			t.Fatalf("round %d attempts = %v", round, attempts)
		}
	}
	if calls != 4 {
		t.Fatalf("expected 4 fetches across two rounds, got %d", calls)
	}
}

func TestWatchBreakStopsFetching(t *testing.T) {
	clock := newFakeClock()
	fetcher := &scriptedFetcher{clock: clock, statuses: []string{"PENDING"}}
	for ev := range NewPoller(fetcher, WithClock(clock)).Watch(context.Background(), "job-b") {
		if ev.Attempt == 2 {
			break
		}
	}
	if got := fetcher.count(); got != 2 {
		t.Fatalf("expected 2 fetches, got %d", got)
	}
}

func TestTaskCancelStopsPublishing(t *testing.T) {
	fetched := make(chan struct{}, 16)
	fetcher := FetchFunc(func(context.Context, string) (backend.JobStatus, error) {
		fetched <- struct{}{}
		return backend.JobStatus{Status: "RUNNING"}, nil
	})
	// Real clock with a long interval: the loop parks between attempts.
	poller := NewPoller(fetcher, WithInterval(time.Hour))
	task := poller.Start(context.Background(), "job-c")

	first, ok := <-task.Events()
	if !ok || first.Kind != EventStatus || first.Attempt != 1 {
		t.Fatalf("unexpected first event %+v (ok=%v)", first, ok)
	}
	task.Cancel()

	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("task did not stop after cancel")
	}
	if ev, ok := <-task.Events(); ok {
		t.Fatalf("expected closed stream after cancel, got %+v", ev)
	}
	if len(fetched) != 1 {
		t.Fatalf("expected a single fetch, got %d", len(fetched))
	}
	last, ok := task.Wait()
	if !ok || last.Attempt != 1 {
		t.Fatalf("Wait returned %+v ok=%v", last, ok)
	}
}

// cancelOnNow cancels a task the first time the poller stamps an event, after
// the loop has already checked its context.
type cancelOnNow struct {
	*fakeClock
	once   sync.Once
	cancel func()
}

func (c *cancelOnNow) Now() time.Time {
	c.once.Do(c.cancel)
	return c.fakeClock.Now()
}

func TestTaskCancelledBeforeSendPublishesNothing(t *testing.T) {
	fetcher := FetchFunc(func(context.Context, string) (backend.JobStatus, error) {
		return backend.JobStatus{Status: "RUNNING"}, nil
	})
	for i := range 50 {
		var task *Task
		ready := make(chan struct{})
		clock := &cancelOnNow{fakeClock: newFakeClock(), cancel: func() {
			<-ready
			task.Cancel()
		}}
		task = NewPoller(fetcher, WithClock(clock)).Start(context.Background(), "job-r")
		close(ready)

		<-task.Done()
		if ev, ok := <-task.Events(); ok {
			t.Fatalf("run %d: event published after cancel: %+v", i, ev)
		}
		if _, ok := task.Wait(); ok {
			t.Fatalf("run %d: expected no recorded event", i)
		}
	}
}

func TestTasksForDifferentJobsAreIndependent(t *testing.T) {
	statuses := map[string][]string{
		"job-a": {"PENDING", "DONE"},
		"job-b": {"PENDING", "PENDING", "ERROR"},
	}
	var mu sync.Mutex
	counts := map[string]int{}
	fetcher := FetchFunc(func(_ context.Context, id string) (backend.JobStatus, error) {
		mu.Lock()
		defer mu.Unlock()
		seq := statuses[id]
		status := seq[min(counts[id], len(seq)-1)]
		counts[id]++
		return backend.JobStatus{JobID: id, Status: status}, nil
	})
	poller := NewPoller(fetcher, WithInterval(time.Millisecond))

	a := poller.Start(context.Background(), "job-a")
	b := poller.Start(context.Background(), "job-b")
	finals := map[string]EventKind{}
	for ev := range Merge(a, b) {
		if ev.Final() {
			finals[ev.JobID] = ev.Kind
		}
	}
	if finals["job-a"] != EventDone || finals["job-b"] != EventFailed {
		t.Fatalf("unexpected finals %v", finals)
	}
	if counts["job-a"] != 2 || counts["job-b"] != 3 {
		t.Fatalf("unexpected fetch counts %v", counts)
	}
}

func TestRunHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetcher := &scriptedFetcher{clock: newFakeClock(), statuses: []string{"PENDING"}}
	if _, err := NewPoller(fetcher).Run(ctx, "job-x", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if fetcher.count() != 0 {
		t.Fatalf("cancelled poller must not fetch, got %d", fetcher.count())
	}
}
