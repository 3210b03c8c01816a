package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gofrs/flock"

	"tonearm/internal/config"
	"tonearm/internal/grouper"
	"tonearm/internal/logging"
	"tonearm/internal/queue"
	"tonearm/internal/resolver"
	"tonearm/internal/scanner"
	"tonearm/internal/services"
)

// ResolverLoop is the supervised consumer.
type ResolverLoop interface {
	Run(ctx context.Context) error
	Stats() resolver.Stats
}

// Deps are the collaborators the daemon drives.
type Deps struct {
	Queue    *queue.Store
	Scanner  *scanner.Scanner
	Grouper  *grouper.Grouper
	Resolver ResolverLoop
}

// Options controls daemon timing.
type Options struct {
	LibraryDir string
	LockPath   string
	// RescanInterval repeats the scan flow; zero runs it once at startup.
	RescanInterval time.Duration
	// ErrorRetry is the wait before re-running a failed scan flow.
	ErrorRetry time.Duration
	// RestartInitial and RestartMax bound the resolver restart backoff.
	RestartInitial time.Duration
	RestartMax     time.Duration
	StaleClaimAge  time.Duration
}

// OptionsFromConfig derives daemon options from configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	retry := time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second
	return Options{
		LibraryDir:     cfg.Paths.LibraryDir,
		LockPath:       cfg.LockPath(),
		RescanInterval: time.Duration(cfg.Workflow.RescanIntervalMinutes) * time.Minute,
		ErrorRetry:     retry,
		RestartInitial: retry,
		RestartMax:     5 * time.Minute,
		StaleClaimAge:  cfg.StaleClaimAge(),
	}
}

// Daemon supervises the scan flow and the resolver loop and enforces
// single-instance execution.
type Daemon struct {
	deps   Deps
	opts   Options
	logger *slog.Logger

	mu       sync.RWMutex
	running  bool
	lock     *flock.Flock
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	snapshot flowState
}

type flowState struct {
	lastScan         *scanner.Summary
	lastGroup        *grouper.Summary
	lastScanAt       time.Time
	scanRuns         int
	lastErr          error
	resolverRunning  bool
	resolverRestarts int
}

// New constructs a daemon.
func New(deps Deps, opts Options, logger *slog.Logger) (*Daemon, error) {
	if deps.Queue == nil || deps.Scanner == nil || deps.Grouper == nil || deps.Resolver == nil {
		return nil, errors.New("daemon requires queue, scanner, grouper, and resolver")
	}
	if opts.LockPath == "" {
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "new", "lock path is empty", nil)
	}
	if opts.ErrorRetry <= 0 {
		opts.ErrorRetry = 10 * time.Second
	}
	if opts.RestartInitial <= 0 {
		opts.RestartInitial = opts.ErrorRetry
	}
	if opts.RestartMax < opts.RestartInitial {
		opts.RestartMax = opts.RestartInitial
	}
	return &Daemon{
		deps:   deps,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "daemon"),
	}, nil
}

// Start acquires the instance lock, resets stale claims and launches both
// flows. It returns once they are running.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("daemon already running")
	}

	lock, err := AcquireLock(d.opts.LockPath)
	if err != nil {
		return err
	}

	reset, err := d.deps.Queue.ResetStaleClaims(ctx, d.opts.StaleClaimAge)
	if err != nil {
		_ = lock.Unlock()
		return err
	}
	if reset > 0 {
		logging.WarnWithContext(d.logger, "stale enrichment claims reset", "queue_stale_claims",
			logging.Int64("reset", reset),
			logging.String(logging.FieldImpact, "jobs will be processed again"),
			logging.String(logging.FieldErrorHint, "a previous run likely exited mid-job"),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.lock = lock
	d.cancel = cancel
	d.running = true
	d.wg.Add(2)
	go d.runScanFlow(runCtx)
	go d.superviseResolver(runCtx)

	d.logger.Info("tonearm daemon started",
		logging.String("lock", d.opts.LockPath),
		logging.String("library", d.opts.LibraryDir),
		logging.Duration("rescan_interval", d.opts.RescanInterval),
	)
	return nil
}

// Stop cancels both flows, waits for them and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	lock := d.lock
	d.running = false
	d.cancel = nil
	d.lock = nil
	d.mu.Unlock()

	cancel()
	d.wg.Wait()
	if err := lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_unlock_failed"),
		)
	}
	d.logger.Info("tonearm daemon stopped")
}

func (d *Daemon) runScanFlow(ctx context.Context) {
	defer d.wg.Done()
	for {
		err := d.RunScanCycle(ctx)
		if ctx.Err() != nil {
			return
		}
		wait := d.opts.RescanInterval
		if err != nil {
			wait = d.opts.ErrorRetry
		} else if wait <= 0 {
			return
		}
		if sleep(ctx, wait) != nil {
			return
		}
	}
}

// RunScanCycle scans the library and regroups directories once.
func (d *Daemon) RunScanCycle(ctx context.Context) error {
	if d.opts.StaleClaimAge > 0 {
		if _, err := d.deps.Queue.ResetStaleClaims(ctx, d.opts.StaleClaimAge); err != nil {
			d.logger.Warn("stale claim reset failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_stale_reset_failed"),
				logging.String(logging.FieldErrorHint, "check catalog database access"),
			)
		}
	}

	scanSummary, err := d.deps.Scanner.Scan(ctx, d.opts.LibraryDir)
	d.mu.Lock()
	d.snapshot.scanRuns++
	d.snapshot.lastScan = &scanSummary
	d.snapshot.lastScanAt = time.Now()
	d.mu.Unlock()
	if err != nil {
		d.setLastError(err)
		return err
	}

	groupSummary, err := d.deps.Grouper.Run(ctx)
	if err != nil {
		d.setLastError(err)
		logging.ErrorWithContext(d.logger, "directory grouping failed", "group_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "grouping will run again on the next scan cycle"),
		)
		return err
	}
	d.mu.Lock()
	d.snapshot.lastGroup = &groupSummary
	d.mu.Unlock()
	return nil
}

func (d *Daemon) superviseResolver(ctx context.Context) {
	defer d.wg.Done()
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = d.opts.RestartInitial
	policy.MaxInterval = d.opts.RestartMax

	for {
		d.setResolverRunning(true)
		started := time.Now()
		err := d.deps.Resolver.Run(ctx)
		d.setResolverRunning(false)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errors.New("resolver loop exited")
		}
		if time.Since(started) > d.opts.RestartMax {
			policy.Reset()
		}
		delay := policy.NextBackOff()

		d.mu.Lock()
		d.snapshot.resolverRestarts++
		d.snapshot.lastErr = err
		d.mu.Unlock()
		logging.ErrorWithContext(d.logger, "resolver loop stopped; restarting", "resolver_restart",
			logging.Error(err),
			logging.Duration("restart_in", delay),
			logging.String(logging.FieldErrorHint, "check catalog database access"),
		)
		if sleep(ctx, delay) != nil {
			return
		}
	}
}

func (d *Daemon) setLastError(err error) {
	d.mu.Lock()
	d.snapshot.lastErr = err
	d.mu.Unlock()
}

func (d *Daemon) setResolverRunning(v bool) {
	d.mu.Lock()
	d.snapshot.resolverRunning = v
	d.mu.Unlock()
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
