package jobs

import (
	"errors"
	"time"

	"lingo/internal/services/backend"
)

var (
	// ErrGaveUp reports that the attempt ceiling was reached while the job was
	// still running server-side.
	ErrGaveUp = errors.New("gave up waiting for job")
	// ErrJobFailed reports that the backend marked the job as ERROR.
	ErrJobFailed = errors.New("job failed")
)

// EventKind classifies a poller event.
type EventKind int

const (
	// EventStatus is an intermediate, non-terminal snapshot.
	EventStatus EventKind = iota
	// EventDone carries the final snapshot of a job that completed.
	EventDone
	// EventFailed carries the final snapshot of a job the backend marked ERROR.
	EventFailed
	// EventError reports a failed status fetch; polling stops without retry.
	EventError
	// EventGaveUp reports that the attempt budget ran out.
	EventGaveUp
)

func (k EventKind) String() string {
	switch k {
	case EventStatus:
		return "status"
	case EventDone:
		return "done"
	case EventFailed:
		return "failed"
	case EventError:
		return "error"
	case EventGaveUp:
		return "gave_up"
	default:
		return "unknown"
	}
}

// Event is one observation published by the poller.
type Event struct {
	JobID   string
	Kind    EventKind
	Attempt int
	Status  backend.JobStatus
	Err     error
	At      time.Time
}

// Final reports whether no further events follow for the job.
func (e Event) Final() bool {
	return e.Kind != EventStatus
}
