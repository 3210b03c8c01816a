package queue

import (
	"context"
	"fmt"
	"strings"
)

var stateFilters = map[State]string{
	StatePending:  "(processing_started_at IS NULL AND failed_at IS NULL AND next_attempt_at IS NULL)",
	StateRetrying: "(processing_started_at IS NULL AND failed_at IS NULL AND next_attempt_at IS NOT NULL)",
	StateClaimed:  "(processing_started_at IS NOT NULL)",
	StateFailed:   "(failed_at IS NOT NULL)",
}

// List returns jobs in claim order, optionally restricted to states.
func (s *Store) List(ctx context.Context, states ...State) ([]*Job, error) {
	query := "SELECT " + jobColumns + " FROM enrichment_jobs"
	if len(states) > 0 {
		clauses := make([]string, 0, len(states))
		for _, state := range states {
			clause, ok := stateFilters[state]
			if !ok {
				return nil, fmt.Errorf("unknown job state %q", state)
			}
			clauses = append(clauses, clause)
		}
		query += " WHERE " + strings.Join(clauses, " OR ")
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.SQL().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Health aggregates queue state for diagnostic output.
func (s *Store) Health(ctx context.Context) (Health, error) {
	jobs, err := s.List(ctx)
	if err != nil {
		return Health{}, err
	}
	var health Health
	for _, job := range jobs {
		health.Total++
		switch job.State() {
		case StatePending:
			health.Pending++
			if health.OldestPending == nil {
				created := job.CreatedAt
				health.OldestPending = &created
			}
		case StateRetrying:
			health.Retrying++
		case StateClaimed:
			health.Claimed++
		case StateFailed:
			health.Failed++
		}
	}
	return health, nil
}
