// Package grouper derives Directory rows from the parent paths of cataloged
// audio and links audio and artists to them.
package grouper

import (
	"context"
	"fmt"
	"log/slog"

	"tonearm/internal/catalog"
	"tonearm/internal/logging"
	"tonearm/internal/services"
)

// Summary reports one grouping pass.
type Summary struct {
	Directories   int
	AudioLinks    int64
	ArtistFolders int64
}

// Grouper runs the directory grouping pass.
type Grouper struct {
	catalog *catalog.Store
	logger  *slog.Logger
}

// New constructs a grouper.
func New(store *catalog.Store, logger *slog.Logger) *Grouper {
	return &Grouper{catalog: store, logger: logging.NewComponentLogger(logger, "grouper")}
}

// Run creates one directory per distinct audio path, links every audio in
// that path, then back-fills artist_directory from existing artist links.
// Re-running is a no-op apart from touching updated_at.
func (g *Grouper) Run(ctx context.Context) (Summary, error) {
	ctx = services.WithStage(ctx, "group")
	logger := logging.WithContext(ctx, g.logger)

	paths, err := g.catalog.ListDistinct(ctx, "path")
	if err != nil {
		return Summary{}, fmt.Errorf("list audio paths: %w", err)
	}

	var summary Summary
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		dir, err := g.catalog.UpsertDirectory(ctx, path)
		if err != nil {
			return summary, err
		}
		linked, err := g.catalog.LinkDirectoryAudio(ctx, dir)
		if err != nil {
			return summary, err
		}
		summary.Directories++
		summary.AudioLinks += linked
		if linked > 0 {
			logger.Debug("directory linked",
				logging.String("path", dir.Path),
				logging.String("name", dir.Name),
				logging.Int64("audio_links", linked),
			)
		}
	}

	folders, err := g.catalog.BackfillArtistDirectories(ctx)
	if err != nil {
		return summary, err
	}
	summary.ArtistFolders = folders

	logger.Info("grouping completed",
		logging.Int("directories", summary.Directories),
		logging.Int64("audio_links", summary.AudioLinks),
		logging.Int64("artist_folders", summary.ArtistFolders),
	)
	return summary, nil
}
