package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

// schemaStep is one embedded migration; name is the file name without ".sql"
// and doubles as the recorded version.
type schemaStep struct {
	name string
	body string
}

func schemaSteps() ([]schemaStep, error) {
	files, err := fs.Glob(schemaFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)
	steps := make([]schemaStep, 0, len(files))
	for _, file := range files {
		body, err := schemaFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}
		steps = append(steps, schemaStep{
			name: strings.TrimSuffix(path.Base(file), ".sql"),
			body: string(body),
		})
	}
	return steps, nil
}

// migrate brings the schema up to date inside a single transaction. Steps
// already listed in schema_migrations are skipped.
func (d *DB) migrate(ctx context.Context) error {
	steps, err := schemaSteps()
	if err != nil {
		return err
	}
	return d.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`); err != nil {
			return fmt.Errorf("create schema_migrations: %w", err)
		}
		applied, err := appliedVersions(ctx, tx)
		if err != nil {
			return err
		}
		now := time.Now().UTC().Format(time.RFC3339)
		for _, step := range steps {
			if applied[step.name] {
				continue
			}
			if _, err := tx.ExecContext(ctx, step.body); err != nil {
				return fmt.Errorf("apply migration %s: %w", step.name, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", step.name, now); err != nil {
				return fmt.Errorf("record migration %s: %w", step.name, err)
			}
		}
		return nil
	})
}

func appliedVersions(ctx context.Context, tx *sql.Tx) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()
	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// Versions lists applied migrations in order.
func (d *DB) Versions(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ensureContext(ctx), "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	defer rows.Close()
	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
