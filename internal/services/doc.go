// Package services defines shared utilities consumed by the scanner, resolver
// and daemon.
//
// Key responsibilities:
//   - Context helpers that stamp enrichment job IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper, and the Retryable
//     classification that decides whether a failed job is rescheduled.
package services
