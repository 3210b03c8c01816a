package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tonearm/internal/database"
	"tonearm/internal/services"
)

// RetryDelay is the wait before attempt number attempts+1:
// base*2^(attempts-1), capped at max.
func RetryDelay(attempts int, base, max time.Duration) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := base
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// Fail records cause on a claimed job and releases the claim. Retryable
// failures below the attempt limit are rescheduled with exponential delay;
// everything else is parked as Failed. The updated job is returned.
func (s *Store) Fail(ctx context.Context, id int64, cause error, retryable bool) (*Job, error) {
	message := "unknown error"
	if cause != nil {
		message = strings.TrimSpace(cause.Error())
	}
	now := s.now()

	var job *Job
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		var attempts int
		if err := tx.QueryRowContext(ctx, "SELECT attempts FROM enrichment_jobs WHERE id = ?", id).Scan(&attempts); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return services.Wrap(services.ErrNotFound, "queue", "fail", fmt.Sprintf("job %d", id), nil)
			}
			return fmt.Errorf("load attempts: %w", err)
		}
		attempts++

		var row *sql.Row
		if retryable && attempts < s.opts.MaxAttempts {
			next := now.Add(RetryDelay(attempts, s.opts.RetryBase, s.opts.RetryMax))
			row = tx.QueryRowContext(ctx, `UPDATE enrichment_jobs
				SET processing_started_at = NULL, error = ?, attempts = ?, next_attempt_at = ?, failed_at = NULL
				WHERE id = ?
				RETURNING `+jobColumns, message, attempts, database.FormatTime(next), id)
		} else {
			row = tx.QueryRowContext(ctx, `UPDATE enrichment_jobs
				SET processing_started_at = NULL, error = ?, attempts = ?, next_attempt_at = NULL, failed_at = ?
				WHERE id = ?
				RETURNING `+jobColumns, message, attempts, database.FormatTime(now), id)
		}
		var err error
		job, err = scanJob(row)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fail job %d: %w", id, err)
	}
	return job, nil
}

// Release returns a claimed job to the claimable pool without counting an
// attempt. It is used when processing is interrupted by shutdown.
func (s *Store) Release(ctx context.Context, id int64) error {
	if _, err := s.db.ExecWithRetry(ctx, "UPDATE enrichment_jobs SET processing_started_at = NULL WHERE id = ?", id); err != nil {
		return fmt.Errorf("release job %d: %w", id, err)
	}
	return nil
}

// ResetStaleClaims returns jobs claimed more than olderThan ago to the
// claimable pool. It recovers claims abandoned by a crashed consumer.
func (s *Store) ResetStaleClaims(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := database.FormatTime(s.now().Add(-olderThan))
	res, err := s.db.ExecWithRetry(ctx, `UPDATE enrichment_jobs SET processing_started_at = NULL
		WHERE processing_started_at IS NOT NULL AND processing_started_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reset stale claims: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed returns failed jobs to Pending with a fresh attempt budget.
// With no ids every failed job is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	query := `UPDATE enrichment_jobs SET failed_at = NULL, next_attempt_at = NULL, attempts = 0
		WHERE failed_at IS NOT NULL`
	args := make([]any, 0, len(ids))
	if len(ids) > 0 {
		query += " AND id IN (" + database.Placeholders(len(ids)) + ")"
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.db.ExecWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed jobs: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed deletes every failed job.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecWithRetry(ctx, "DELETE FROM enrichment_jobs WHERE failed_at IS NOT NULL")
	if err != nil {
		return 0, fmt.Errorf("clear failed jobs: %w", err)
	}
	return res.RowsAffected()
}
