// Package queue persists deferred artist-resolution work in the catalog
// database and exposes the enqueue, claim, complete and fail transitions the
// resolver drives.
//
// Jobs move Pending -> Claimed -> Completed (row deleted). A failed attempt
// either returns the job to Pending with a next_attempt_at delay or, once
// max_attempts is reached or the failure is not retryable, parks it as
// Failed until an operator retries or clears it.
//
// Claim is a single conditional UPDATE, so several consumers may share one
// database without handing the same job out twice.
package queue
