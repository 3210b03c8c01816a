package preflight

import (
	"context"

	"tonearm/internal/config"
	"tonearm/internal/musicbrainz"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes every preflight check for cfg. The MusicBrainz check is
// skipped when client is nil.
func RunAll(ctx context.Context, cfg *config.Config, client musicbrainz.Searcher) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir, ReadOnly),
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir, ReadWrite),
	}
	for _, status := range CheckSystemDeps(ctx, cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Optional: status.Optional, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Path
			if status.Version != "" {
				result.Detail += " (" + status.Version + ")"
			}
		}
		results = append(results, result)
	}
	if client != nil {
		results = append(results, CheckMusicBrainz(ctx, client, cfg.RequestTimeout()))
	}
	return results
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
