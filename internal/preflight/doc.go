// Package preflight provides readiness checks for the binaries, paths and
// services tonearm depends on.
//
// The `tonearm doctor` command runs RunAll and prints one line per check.
// Filesystem checks use access(2) so permission problems surface before a
// scan walks half the library.
package preflight
