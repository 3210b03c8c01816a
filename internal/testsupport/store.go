package testsupport

import (
	"context"
	"testing"

	"tonearm/internal/catalog"
	"tonearm/internal/config"
	"tonearm/internal/database"
	"tonearm/internal/queue"
)

// MustOpenDatabase opens the catalog database for tests and registers cleanup.
func MustOpenDatabase(t testing.TB, cfg *config.Config) *database.DB {
	t.Helper()
	db, err := database.Open(context.Background(), cfg.DatabasePath())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// MustOpenCatalog returns a catalog store over db.
func MustOpenCatalog(t testing.TB, db *database.DB) *catalog.Store {
	t.Helper()
	return catalog.New(db)
}

// MustOpenQueue returns an enrichment queue over db configured from cfg.
func MustOpenQueue(t testing.TB, cfg *config.Config, db *database.DB) *queue.Store {
	t.Helper()
	return queue.New(db, queue.OptionsFromConfig(cfg))
}
