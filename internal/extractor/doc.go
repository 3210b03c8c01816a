// Package extractor reads technical data and tags from audio files.
//
// FFprobe is the production Extractor: ffprobe supplies codec, duration,
// channel, bit depth and sample-rate values plus container tags, and
// dhowden/tag fills tag names ffprobe left empty. Tag names are mapped onto
// a fixed vocabulary (artist, album-artist, track-number, ...) and filtered
// by the configured allow-list.
package extractor
