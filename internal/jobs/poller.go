package jobs

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"lingo/internal/logging"
	"lingo/internal/services"
	"lingo/internal/services/backend"
)

const (
	// DefaultInterval is the spacing between status fetches.
	DefaultInterval = 3 * time.Second
	// DefaultMaxAttempts bounds the number of fetches per job (about ten
	// minutes at the default interval).
	DefaultMaxAttempts = 200
)

// StatusFetcher retrieves the current status of a job. *backend.Client
// satisfies it.
type StatusFetcher interface {
	JobStatus(ctx context.Context, jobID string, opts ...backend.CallOption) (backend.JobStatus, error)
}

// FetchFunc adapts a function to StatusFetcher.
type FetchFunc func(ctx context.Context, jobID string) (backend.JobStatus, error)

// JobStatus implements StatusFetcher.
func (f FetchFunc) JobStatus(ctx context.Context, jobID string, _ ...backend.CallOption) (backend.JobStatus, error) {
	return f(ctx, jobID)
}

// Poller drives status polling. It is immutable after construction and safe
// for concurrent use; loops for different jobs share nothing.
type Poller struct {
	fetcher     StatusFetcher
	interval    time.Duration
	maxAttempts int
	callOpts    []backend.CallOption
	clock       Clock
	logger      *slog.Logger
}

// Option customizes a Poller.
type Option func(*Poller)

// WithInterval overrides the fetch spacing.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithMaxAttempts overrides the attempt ceiling.
func WithMaxAttempts(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithCallOptions forwards per-call options (such as an API key override) to
// every fetch.
func WithCallOptions(opts ...backend.CallOption) Option {
	return func(p *Poller) {
		p.callOpts = append(p.callOpts, opts...)
	}
}

// WithClock replaces the wall clock (useful for tests).
func WithClock(clock Clock) Option {
	return func(p *Poller) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPoller constructs a poller around fetcher.
func NewPoller(fetcher StatusFetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher:     fetcher,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
		clock:       realClock{},
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Interval returns the configured fetch spacing.
func (p *Poller) Interval() time.Duration { return p.interval }

// MaxAttempts returns the configured attempt ceiling.
func (p *Poller) MaxAttempts() int { return p.maxAttempts }

// poll runs the loop for one job. emit returns false to stop; once it does,
// poll performs no further fetches or emits.
func (p *Poller) poll(ctx context.Context, jobID string, emit func(Event) bool) {
	ctx = services.WithJobID(ctx, jobID)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(p.logger, "jobs"))

	publish := func(ev Event) bool {
		if ctx.Err() != nil {
			return false
		}
		ev.JobID = jobID
		ev.At = p.clock.Now()
		return emit(ev)
	}

	var last backend.JobStatus
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				logger.Debug("job polling cancelled", logging.Int("attempt", attempt))
				return
			case <-p.clock.After(p.interval):
			}
		}
		if ctx.Err() != nil {
			return
		}

		status, err := p.fetcher.JobStatus(ctx, jobID, p.callOpts...)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Warn("job status fetch failed; polling stopped",
				logging.Int("attempt", attempt),
				logging.Error(err),
				logging.String(logging.FieldEventType, "job_status_error"),
				logging.String(logging.FieldErrorHint, "rerun `lingo jobs watch` once the backend is reachable"),
			)
			publish(Event{Kind: EventError, Attempt: attempt, Status: last, Err: err})
			return
		}
		last = status

		ev := Event{Kind: EventStatus, Attempt: attempt, Status: status}
		switch {
		case status.Failed():
			ev.Kind = EventFailed
			ev.Err = failure(status)
		case status.Terminal():
			ev.Kind = EventDone
		}
		logger.Debug("job status",
			logging.Int("attempt", attempt),
			logging.String("status", status.Status),
			logging.String(logging.FieldEventType, "job_"+ev.Kind.String()),
		)
		if !publish(ev) || ev.Final() {
			return
		}
	}

	logger.Warn("job polling budget exhausted",
		logging.Int("attempts", p.maxAttempts),
		logging.String("status", last.Status),
		logging.String(logging.FieldEventType, "job_gave_up"),
		logging.String(logging.FieldErrorHint, "the job may still be running; check again with `lingo jobs status`"),
	)
	publish(Event{
		Kind:    EventGaveUp,
		Attempt: p.maxAttempts,
		Status:  last,
		Err:     fmt.Errorf("%w %s after %d attempts (last status %q)", ErrGaveUp, jobID, p.maxAttempts, last.Status),
	})
}

func failure(status backend.JobStatus) error {
	if msg := strings.TrimSpace(status.Error); msg != "" {
		return fmt.Errorf("%w: %s", ErrJobFailed, msg)
	}
	return ErrJobFailed
}

// Watch returns a finite lazy sequence of events for jobID. Each range over
// the sequence starts polling afresh from attempt one; breaking out of the
// loop stops fetching.
func (p *Poller) Watch(ctx context.Context, jobID string) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		p.poll(ctx, jobID, yield)
	}
}

// Run polls jobID synchronously, invoking fn (when non-nil) for every event.
// It returns the final event and an error describing any outcome other than
// EventDone.
func (p *Poller) Run(ctx context.Context, jobID string, fn func(Event)) (Event, error) {
	var final Event
	seen := false
	for ev := range p.Watch(ctx, jobID) {
		if fn != nil {
			fn(ev)
		}
		final = ev
		seen = true
	}
	if err := ctx.Err(); err != nil {
		return final, err
	}
	if !seen {
		return final, fmt.Errorf("no status observed for job %s", jobID)
	}
	if final.Kind == EventDone {
		return final, nil
	}
	return final, final.Err
}

// Task is a polling loop running in its own goroutine.
type Task struct {
	JobID string

	events chan Event
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	last    Event
	hasLast bool
}

// Start launches an independent polling loop for jobID. Callers must either
// drain Events, call Wait, or Cancel the task.
func (p *Poller) Start(ctx context.Context, jobID string) *Task {
	ctx, cancel := context.WithCancel(ctx)
	task := &Task{
		JobID:  jobID,
		events: make(chan Event, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(task.done)
		defer close(task.events)
		defer cancel()
		p.poll(ctx, jobID, func(ev Event) bool {
			// select picks at random when both cases are ready.
			if ctx.Err() != nil {
				return false
			}
			select {
			case task.events <- ev:
				task.record(ev)
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return task
}

func (t *Task) record(ev Event) {
	t.mu.Lock()
	t.last = ev
	t.hasLast = true
	t.mu.Unlock()
}

// Events returns the event stream; it is closed when the loop ends.
func (t *Task) Events() <-chan Event {
	return t.events
}

// Cancel stops the loop. No fetch or publish happens after Cancel returns
// and the loop observes it.
func (t *Task) Cancel() {
	t.cancel()
}

// Done is closed once the loop has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait drains unread events, blocks until the loop exits and returns the last
// published event. ok is false when nothing was published.
func (t *Task) Wait() (Event, bool) {
	for range t.events {
	}
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.hasLast
}

// Merge fans the events of several tasks into one channel, closed once every
// task has finished.
func Merge(tasks ...*Task) <-chan Event {
	out := make(chan Event)
	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range task.Events() {
				out <- ev
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
