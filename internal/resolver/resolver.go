package resolver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tonearm/internal/catalog"
	"tonearm/internal/config"
	"tonearm/internal/logging"
	"tonearm/internal/musicbrainz"
	"tonearm/internal/queue"
	"tonearm/internal/ratelimit"
)

// Outcome classifies how a job ended.
type Outcome string

const (
	OutcomeLocal    Outcome = "local"
	OutcomeResolved Outcome = "resolved"
	OutcomeBare     Outcome = "bare"
	OutcomeRetrying Outcome = "retrying"
	OutcomeFailed   Outcome = "failed"
	OutcomeReleased Outcome = "released"
)

// Options tunes the loop.
type Options struct {
	// RequestTimeout bounds each external search.
	RequestTimeout time.Duration
	// IdleInterval is the sleep when the queue has nothing claimable.
	IdleInterval time.Duration
}

// OptionsFromConfig reads the [musicbrainz] section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		RequestTimeout: cfg.RequestTimeout(),
		IdleInterval:   cfg.MinInterval(),
	}
}

// Stats counts processed jobs by outcome.
type Stats struct {
	Processed int64
	Local     int64
	Resolved  int64
	Bare      int64
	Retrying  int64
	Failed    int64
	Released  int64
}

// Resolver processes enrichment jobs one at a time.
type Resolver struct {
	catalog *catalog.Store
	queue   *queue.Store
	client  musicbrainz.Searcher
	limiter *ratelimit.Limiter
	opts    Options
	logger  *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// New constructs a resolver.
func New(store *catalog.Store, jobs *queue.Store, client musicbrainz.Searcher, limiter *ratelimit.Limiter, opts Options, logger *slog.Logger) *Resolver {
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = limiter.Interval()
	}
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = time.Second
	}
	return &Resolver{
		catalog: store,
		queue:   jobs,
		client:  client,
		limiter: limiter,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "resolver"),
	}
}

// Stats returns a snapshot of the outcome counters.
func (r *Resolver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Run loops until ctx ends. Queue store errors are returned so a
// supervisor can restart the loop.
func (r *Resolver) Run(ctx context.Context) error {
	r.logger.Info("resolver started", logging.Duration("min_interval", r.limiter.Interval()))
	for {
		processed, err := r.Step(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if processed {
			continue
		}
		if err := sleep(ctx, r.opts.IdleInterval); err != nil {
			return err
		}
	}
}

// Drain processes jobs until none is claimable, then returns the stats of
// this call.
func (r *Resolver) Drain(ctx context.Context) (Stats, error) {
	before := r.Stats()
	for {
		processed, err := r.Step(ctx)
		if err != nil {
			return r.Stats().since(before), err
		}
		if !processed {
			return r.Stats().since(before), nil
		}
	}
}

// Step waits for the rate-limit gate, claims one job and processes it. It
// reports false when no job was claimable.
func (r *Resolver) Step(ctx context.Context) (bool, error) {
	if wait := r.limiter.Remaining(); wait > 0 {
		if err := sleep(ctx, wait); err != nil {
			return false, err
		}
	}
	job, err := r.queue.Claim(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	outcome, err := r.process(ctx, job)
	if outcome != "" {
		r.record(outcome)
	}
	return true, err
}

func (r *Resolver) record(outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Processed++
	switch outcome {
	case OutcomeLocal:
		r.stats.Local++
	case OutcomeResolved:
		r.stats.Resolved++
	case OutcomeBare:
		r.stats.Bare++
	case OutcomeRetrying:
		r.stats.Retrying++
	case OutcomeFailed:
		r.stats.Failed++
	case OutcomeReleased:
		r.stats.Released++
	}
}

func (s Stats) since(before Stats) Stats {
	return Stats{
		Processed: s.Processed - before.Processed,
		Local:     s.Local - before.Local,
		Resolved:  s.Resolved - before.Resolved,
		Bare:      s.Bare - before.Bare,
		Retrying:  s.Retrying - before.Retrying,
		Failed:    s.Failed - before.Failed,
		Released:  s.Released - before.Released,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
