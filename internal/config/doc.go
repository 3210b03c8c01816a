// Package config loads, normalizes, and validates tonearm configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TONEARM_LIBRARY_DIR. The Config type centralizes every knob the daemon and
// CLI need so the library root, catalog location and MusicBrainz pacing are
// discovered in one pass.
package config
