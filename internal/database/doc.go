// Package database opens the SQLite catalog file, applies embedded schema
// migrations and provides the busy-retry and transaction helpers the catalog
// and queue stores build on.
package database
