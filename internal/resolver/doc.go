// Package resolver consumes enrichment jobs and resolves artist names.
//
// Each iteration waits out the rate-limit gate, claims the oldest due job
// and processes it. Names already in the catalog are linked without an
// external call. Otherwise one MusicBrainz search is made (its slot is
// recorded before the request) and the first candidate is stored; with no
// candidate a bare artist is stored so the name is never searched again.
// Failures are recorded on the job and retried with backoff when the error
// is transient.
package resolver
