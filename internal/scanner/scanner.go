package scanner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"tonearm/internal/catalog"
	"tonearm/internal/config"
	"tonearm/internal/extractor"
	"tonearm/internal/logging"
	"tonearm/internal/media/mediatype"
	"tonearm/internal/queue"
	"tonearm/internal/services"
)

// Options bounds a scan run.
type Options struct {
	// MaxFiles caps the number of new audio files cataloged per run; files
	// that fail probing do not count. <= 0 is unlimited.
	MaxFiles       int
	FollowSymlinks bool
}

// OptionsFromConfig reads the [scanner] section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxFiles:       cfg.Scanner.MaxFiles,
		FollowSymlinks: cfg.Scanner.FollowSymlinks,
	}
}

// Summary reports what one scan run did.
type Summary struct {
	RunID     string
	Root      string
	Files     int
	Images    int
	Unknown   int
	Existing  int
	Probed    int
	Inserted  int
	Failed    int
	Linked    int
	Enqueued  int
	Truncated bool
	Duration  time.Duration
}

// Scanner catalogs audio files under a library root.
type Scanner struct {
	catalog   *catalog.Store
	queue     *queue.Store
	extractor extractor.Extractor
	opts      Options
	logger    *slog.Logger
	detect    func(path string) (string, mediatype.Type, error)
}

// New constructs a scanner.
func New(store *catalog.Store, jobs *queue.Store, ex extractor.Extractor, opts Options, logger *slog.Logger) *Scanner {
	return &Scanner{
		catalog:   store,
		queue:     jobs,
		extractor: ex,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "scanner"),
		detect:    mediatype.Detect,
	}
}

// Scan walks root once. Per-file problems are logged and skipped; catalog
// failures abort the run and are returned together with the partial summary.
func (s *Scanner) Scan(ctx context.Context, root string) (Summary, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Summary{}, services.Wrap(services.ErrConfiguration, "scanner", "resolve root", root, err)
	}
	summary := Summary{RunID: uuid.NewString(), Root: abs}
	ctx = services.WithStage(services.WithRunID(ctx, summary.RunID), "scan")
	logger := logging.WithContext(ctx, s.logger)
	started := time.Now()

	logger.Info("scan started", logging.String("root", abs), logging.Int("max_files", s.opts.MaxFiles))

	w := &walker{
		followSymlinks: s.opts.FollowSymlinks,
		visit: func(path string) error {
			return s.visit(ctx, logger, path, &summary)
		},
		onError: func(path string, err error) {
			logging.WarnWithContext(logger, "library entry unreadable", "scan_entry_unreadable",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "entry skipped"),
				logging.String(logging.FieldErrorHint, "check permissions and symlinks"),
			)
		},
	}
	err = w.walk(ctx, abs)
	if errors.Is(err, errStopWalk) {
		err = nil
	}
	summary.Duration = time.Since(started)
	if err != nil {
		logging.ErrorWithContext(logger, "scan aborted", "scan_aborted",
			logging.Error(err),
			logging.Int("inserted", summary.Inserted),
		)
		return summary, err
	}

	logger.Info("scan completed",
		logging.Int("files", summary.Files),
		logging.Int("existing", summary.Existing),
		logging.Int("inserted", summary.Inserted),
		logging.Int("failed", summary.Failed),
		logging.Int("linked", summary.Linked),
		logging.Int("enqueued", summary.Enqueued),
		logging.Bool("truncated", summary.Truncated),
		logging.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (s *Scanner) visit(ctx context.Context, logger *slog.Logger, path string, summary *Summary) error {
	summary.Files++
	mime, kind, err := s.detect(path)
	if err != nil {
		summary.Unknown++
		logging.WarnWithContext(logger, "media type detection failed", "scan_detect_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file skipped"),
		)
		return nil
	}
	switch kind {
	case mediatype.Image:
		summary.Images++
		logger.Debug("image detected", logging.String("path", path), logging.String("mime", mime))
		return nil
	case mediatype.Audio:
	default:
		summary.Unknown++
		logger.Debug("unsupported file", logging.String("path", path), logging.String("mime", mime))
		return nil
	}

	uri := FileURI(path)
	existing, err := s.catalog.FindAudioByURI(ctx, uri)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", uri, err)
	}
	if existing != nil {
		summary.Existing++
		return nil
	}

	if s.opts.MaxFiles > 0 && summary.Inserted >= s.opts.MaxFiles {
		summary.Truncated = true
		logger.Info("max files reached, stopping scan", logging.Int("max_files", s.opts.MaxFiles))
		return errStopWalk
	}
	summary.Probed++

	probe, err := s.extractor.Probe(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		summary.Failed++
		logging.WarnWithContext(logger, "audio probe failed", "scan_probe_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file not cataloged"),
			logging.String(logging.FieldErrorHint, "verify the file plays and ffprobe is installed"),
		)
		return nil
	}

	name := filepath.Base(path)
	audio := catalog.Audio{
		URI:       uri,
		Path:      filepath.Dir(path),
		Name:      name,
		Extension: extractor.Extension(name),
		Format:    probe.Codec,
		Duration:  probe.Duration,
		Channels:  probe.Channels,
		Bits:      probe.BitDepth,
		Hertz:     probe.SampleRate,
	}
	result, err := s.catalog.InsertAudio(ctx, audio, probe.Tags, probe.Artists(),
		func(ctx context.Context, tx *sql.Tx, audioID int64, artist string) error {
			_, err := s.queue.EnqueueTx(ctx, tx, queue.NewAudioArtistPayload(audioID, artist))
			return err
		})
	if err != nil {
		return fmt.Errorf("catalog %s: %w", path, err)
	}
	if !result.Created {
		summary.Existing++
		return nil
	}
	summary.Inserted++
	summary.Linked += len(result.Linked)
	summary.Enqueued += len(result.Deferred)
	logger.Debug("audio cataloged",
		logging.Int64("audio_id", result.Audio.ID),
		logging.String("path", path),
		logging.String("format", result.Audio.Format),
		logging.Int("tags", len(probe.Tags)),
		logging.Int("enqueued", len(result.Deferred)),
	)
	return nil
}
