// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and returns a Result; helper methods pick the primary
// audio stream and parse its technical values. Unparseable numbers read as 0.
package ffprobe
