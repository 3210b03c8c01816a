// Package logs reads tonearm's log file for the `tonearm logs` command:
// the last N lines, everything after a byte offset, and a polling follow
// loop that tolerates the file being truncated or not existing yet.
package logs
