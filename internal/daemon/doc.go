// Package daemon coordinates the long-running tonearm process.
//
// It owns the single-instance flock, recovers stale queue claims at
// startup and runs two supervised flows: the scan flow (scan the library,
// then group directories, repeated on the rescan interval) and the resolver
// loop, which is restarted with exponential backoff when it returns an
// error. Status reports the latest results of both.
//
// Keep orchestration logic here: scanning, grouping and resolution live in
// their own packages.
package daemon
