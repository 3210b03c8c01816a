package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"tonearm/internal/config"
	"tonearm/internal/deps"
	"tonearm/internal/musicbrainz"
	"tonearm/internal/services"
)

// Access is the permission set a directory check requires.
type Access uint32

const (
	ReadOnly  Access = unix.R_OK | unix.X_OK
	ReadWrite Access = unix.R_OK | unix.W_OK | unix.X_OK
)

func (a Access) String() string {
	if a&unix.W_OK != 0 {
		return "read/write"
	}
	return "read"
}

// probeArtist is searched by the MusicBrainz check; any well-known name works.
const probeArtist = "Radiohead"

// CheckDirectoryAccess verifies that the directory exists and grants access.
func CheckDirectoryAccess(name, path string, access Access) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, uint32(access)); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s ok)", path, access)}
}

// CheckSystemDeps evaluates the external binaries the scanner needs.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(ctx, []deps.Requirement{
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for audio inspection",
			VersionArgs: []string{"-version"},
		},
	})
}

// CheckMusicBrainz issues one artist search to confirm the service answers.
func CheckMusicBrainz(ctx context.Context, client musicbrainz.Searcher, timeout time.Duration) Result {
	const name = "MusicBrainz"
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	candidates, err := client.SearchArtists(checkCtx, probeArtist)
	if err != nil {
		return Result{Name: name, Detail: summarizeSearchError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (%d candidates)", len(candidates))}
}

func summarizeSearchError(err error) string {
	switch {
	case errors.Is(err, services.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "search timed out (service unresponsive)"
	case errors.Is(err, services.ErrTransient):
		return "rate limited or temporarily unavailable"
	case errors.Is(err, services.ErrValidation):
		return "request rejected; check base_url and user_agent"
	default:
		return err.Error()
	}
}
