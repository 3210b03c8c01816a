// Package musicbrainz is a small client for the MusicBrainz WS/2 JSON API.
//
// Only artist search is implemented. The client does no rate limiting of
// its own; callers gate requests through internal/ratelimit. Errors carry
// services markers so the resolver can decide whether to retry.
package musicbrainz
