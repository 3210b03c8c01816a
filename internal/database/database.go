package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	_ "modernc.org/sqlite"

	"tonearm/internal/logging"
	"tonearm/internal/services"
)

// DB wraps the catalog SQLite database shared by the catalog and the
// enrichment queue.
type DB struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// pragmas are applied to every pooled connection through the DSN so that
// foreign keys and the busy timeout hold regardless of which connection runs
// a statement. Write transactions take the RESERVED lock up front.
var pragmas = []string{
	"_pragma=busy_timeout(5000)",
	"_pragma=foreign_keys(1)",
	"_pragma=journal_mode(WAL)",
	"_pragma=synchronous(NORMAL)",
	"_txlock=immediate",
}

// Open initializes or connects to the catalog database at path and applies
// pending migrations.
func Open(ctx context.Context, path string) (*DB, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(path) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "database", "open", "database path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure database directory: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?"+strings.Join(pragmas, "&"))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &DB{db: db, path: path}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OpenWithRetry retries Open with exponential backoff for at most attempts
// tries. Configuration errors are returned immediately.
func OpenWithRetry(ctx context.Context, path string, attempts int, logger *slog.Logger) (*DB, error) {
	ctx = ensureContext(ctx)
	logger = logging.NewComponentLogger(logger, "database")
	if attempts <= 0 {
		attempts = 1
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, func() (*DB, error) {
		db, err := Open(ctx, path)
		if err != nil && errors.Is(err, services.ErrConfiguration) {
			return nil, backoff.Permanent(err)
		}
		return db, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logging.WarnWithContext(logger, "catalog database unavailable; retrying", "database_open_retry",
				logging.String("path", path),
				logging.Duration("retry_in", wait),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check data_dir permissions and free disk space"),
				logging.String(logging.FieldImpact, "startup delayed until the catalog opens"),
			)
		}),
	)
}

// SQL exposes the underlying handle to the catalog and queue stores.
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Path returns the database file location.
func (d *DB) Path() string {
	return d.path
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Ping verifies the connection is usable.
func (d *DB) Ping(ctx context.Context) error {
	if d == nil || d.db == nil {
		return errors.New("database connection unavailable")
	}
	return d.db.PingContext(ensureContext(ctx))
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// IsBusy reports whether err is SQLite's "database is locked" condition.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// RetryOnBusy runs op, retrying with a short exponential delay while SQLite
// reports the database as busy.
func RetryOnBusy(ctx context.Context, op func() error) error {
	ctx = ensureContext(ctx)
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !IsBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// ExecWithRetry executes a statement, retrying on SQLITE_BUSY.
func (d *DB) ExecWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := RetryOnBusy(ctx, func() error {
		res, execErr = d.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// InTx runs fn inside a transaction, committing on success. The whole
// transaction is retried when SQLite reports the database as busy, so fn
// must not have side effects outside tx.
func (d *DB) InTx(ctx context.Context, fn func(*sql.Tx) error) error {
	ctx = ensureContext(ctx)
	return RetryOnBusy(ctx, func() error {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}
