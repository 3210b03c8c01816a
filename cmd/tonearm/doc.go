// Package main hosts the tonearm CLI entrypoint and command graph.
//
// The Cobra command tree opens the catalog database directly: `scan` walks
// the library once, `resolve --once` drains the enrichment queue, `run`
// starts the supervised daemon, and the `queue`, `artists` and `config`
// commands cover inspection and maintenance. Configuration loading and store
// wiring live in commandContext so subcommands stay declarative.
package main
