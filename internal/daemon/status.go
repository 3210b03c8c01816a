package daemon

import (
	"context"
	"time"

	"tonearm/internal/grouper"
	"tonearm/internal/logging"
	"tonearm/internal/queue"
	"tonearm/internal/resolver"
	"tonearm/internal/scanner"
)

// Status represents daemon runtime information.
type Status struct {
	Running          bool
	LockFilePath     string
	ScanRuns         int
	LastScan         *scanner.Summary
	LastScanAt       time.Time
	LastGroup        *grouper.Summary
	LastError        string
	ResolverRunning  bool
	ResolverRestarts int
	Resolver         resolver.Stats
	Queue            queue.Health
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.RLock()
	status := Status{
		Running:          d.running,
		LockFilePath:     d.opts.LockPath,
		ScanRuns:         d.snapshot.scanRuns,
		LastScanAt:       d.snapshot.lastScanAt,
		ResolverRunning:  d.snapshot.resolverRunning,
		ResolverRestarts: d.snapshot.resolverRestarts,
	}
	if d.snapshot.lastScan != nil {
		copy := *d.snapshot.lastScan
		status.LastScan = &copy
	}
	if d.snapshot.lastGroup != nil {
		copy := *d.snapshot.lastGroup
		status.LastGroup = &copy
	}
	if d.snapshot.lastErr != nil {
		status.LastError = d.snapshot.lastErr.Error()
	}
	d.mu.RUnlock()

	status.Resolver = d.deps.Resolver.Stats()
	health, err := d.deps.Queue.Health(ctx)
	if err != nil {
		d.logger.Warn("failed to read queue health",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_health_failed"),
		)
	}
	status.Queue = health
	return status
}
