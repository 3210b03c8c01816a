package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tonearm/internal/config"
	"tonearm/internal/database"
	"tonearm/internal/services"
)

// Options controls retry scheduling.
type Options struct {
	MaxAttempts int
	RetryBase   time.Duration
	RetryMax    time.Duration
	Now         func() time.Time
}

// OptionsFromConfig derives queue options from the [queue] section.
func OptionsFromConfig(cfg *config.Config) Options {
	base, max := cfg.RetryBackoff()
	return Options{
		MaxAttempts: cfg.Queue.MaxAttempts,
		RetryBase:   base,
		RetryMax:    max,
	}
}

// Store manages enrichment jobs in the catalog database.
type Store struct {
	db   *database.DB
	opts Options
}

// New returns a queue store over db.
func New(db *database.DB, opts Options) *Store {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = time.Second
	}
	if opts.RetryMax < opts.RetryBase {
		opts.RetryMax = opts.RetryBase
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{db: db, opts: opts}
}

func (s *Store) now() time.Time {
	return s.opts.Now().UTC()
}

const jobColumns = "id, created_at, processing_started_at, payload, error, attempts, next_attempt_at, failed_at"

// Enqueue stores payload unless a job with an identical encoded payload
// already exists. It reports whether a row was inserted.
func (s *Store) Enqueue(ctx context.Context, payload Payload) (bool, error) {
	encoded, err := payload.Encode()
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecWithRetry(ctx, insertJobSQL, database.FormatTime(s.now()), encoded)
	if err != nil {
		return false, fmt.Errorf("enqueue job: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// EnqueueTx is Enqueue inside a caller-owned transaction.
func (s *Store) EnqueueTx(ctx context.Context, tx *sql.Tx, payload Payload) (bool, error) {
	encoded, err := payload.Encode()
	if err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, insertJobSQL, database.FormatTime(s.now()), encoded)
	if err != nil {
		return false, fmt.Errorf("enqueue job: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

const insertJobSQL = `INSERT INTO enrichment_jobs (created_at, payload) VALUES (?, ?)
	ON CONFLICT(payload) DO NOTHING`

// Claim stamps and returns the oldest claimable job, or nil when none is
// due. The select and the stamp happen in one statement.
func (s *Store) Claim(ctx context.Context) (*Job, error) {
	now := database.FormatTime(s.now())
	var job *Job
	err := database.RetryOnBusy(ctx, func() error {
		row := s.db.SQL().QueryRowContext(ctx, `UPDATE enrichment_jobs
			SET processing_started_at = ?
			WHERE id = (
				SELECT id FROM enrichment_jobs
				WHERE processing_started_at IS NULL
				  AND failed_at IS NULL
				  AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
				ORDER BY created_at, id
				LIMIT 1
			)
			AND processing_started_at IS NULL
			RETURNING `+jobColumns, now, now)
		var scanErr error
		job, scanErr = scanJob(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// Complete deletes a finished job.
func (s *Store) Complete(ctx context.Context, id int64) error {
	res, err := s.db.ExecWithRetry(ctx, "DELETE FROM enrichment_jobs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return services.Wrap(services.ErrNotFound, "queue", "complete", fmt.Sprintf("job %d", id), nil)
	}
	return nil
}

// Get returns a job by id.
func (s *Store) Get(ctx context.Context, id int64) (*Job, error) {
	job, err := scanJob(s.db.SQL().QueryRowContext(ctx, "SELECT "+jobColumns+" FROM enrichment_jobs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "queue", "get", fmt.Sprintf("job %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job          Job
		createdRaw   string
		processedRaw sql.NullString
		errText      sql.NullString
		nextRaw      sql.NullString
		failedRaw    sql.NullString
	)
	if err := scanner.Scan(&job.ID, &createdRaw, &processedRaw, &job.RawPayload, &errText, &job.Attempts, &nextRaw, &failedRaw); err != nil {
		return nil, err
	}
	if created, err := database.ParseTime(createdRaw); err == nil {
		job.CreatedAt = created
	}
	job.ProcessingStartedAt = optionalTime(processedRaw)
	job.NextAttemptAt = optionalTime(nextRaw)
	job.FailedAt = optionalTime(failedRaw)
	job.Error = errText.String
	// A malformed payload leaves Payload zero; Validate reports it to the consumer.
	if payload, err := DecodePayload(job.RawPayload); err == nil {
		job.Payload = payload
	}
	return &job, nil
}

func optionalTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := database.ParseTime(value.String)
	if err != nil {
		return nil
	}
	return &t
}
