package queue

import (
	"time"

	"genstudio/internal/generation"
)

// Status is the visible state of a job record. Succeeded jobs are removed,
// so there is no completed status.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusGenerating Status = "generating"
	StatusFailed     Status = "failed"
)

// Job is one tracked generation request.
type Job struct {
	ID      string
	Request generation.Request
	Status  Status

	CreatedAt time.Time
	// StartedAt is zero until the job starts generating.
	StartedAt time.Time
	// EstimatedDuration is the model average plus the safety buffer. It
	// drives progress display only.
	EstimatedDuration time.Duration
	// Error is set only when Status is failed.
	Error string

	// seq distinguishes reservations of the same id over time.
	seq uint64
	// dispatched is set once the record has been started or failed.
	dispatched bool
}

// Ticket identifies one reservation of a job id. Updates carrying a stale
// ticket are dropped, so a dismissed and resubmitted id never receives the
// outcome of the earlier submission.
type Ticket struct {
	ID  string
	seq uint64
}

func (j Job) ticket() Ticket {
	return Ticket{ID: j.ID, seq: j.seq}
}

// Elapsed is the time spent generating as of now.
func (j Job) Elapsed(now time.Time) time.Duration {
	if j.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(j.StartedAt)
}

// EventType names a change to the job list.
type EventType string

const (
	EventEnqueued  EventType = "enqueued"
	EventStarted   EventType = "started"
	EventSucceeded EventType = "succeeded"
	EventFailed    EventType = "failed"
	EventDismissed EventType = "dismissed"
)

// Event is published to subscribers after every change. Job is a copy of
// the record as of the change.
type Event struct {
	Type     EventType
	Job      Job
	Response *generation.Response
}
