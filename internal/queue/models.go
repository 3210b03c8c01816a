package queue

import (
	"time"
)

// State is the derived lifecycle state of a job.
type State string

const (
	StatePending  State = "pending"
	StateRetrying State = "retrying"
	StateClaimed  State = "claimed"
	StateFailed   State = "failed"
)

// Job is one persisted enrichment job.
type Job struct {
	ID                  int64
	CreatedAt           time.Time
	ProcessingStartedAt *time.Time
	Payload             Payload
	RawPayload          string
	Error               string
	Attempts            int
	NextAttemptAt       *time.Time
	FailedAt            *time.Time
}

// State reports the job's lifecycle state.
func (j *Job) State() State {
	switch {
	case j == nil:
		return ""
	case j.FailedAt != nil:
		return StateFailed
	case j.ProcessingStartedAt != nil:
		return StateClaimed
	case j.NextAttemptAt != nil:
		return StateRetrying
	default:
		return StatePending
	}
}

// Health summarizes the queue for diagnostics.
type Health struct {
	Total    int
	Pending  int
	Retrying int
	Claimed  int
	Failed   int
	// OldestPending is the created_at of the oldest job waiting to be claimed.
	OldestPending *time.Time
}
