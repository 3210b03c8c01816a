package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tonearm/internal/database"
	"tonearm/internal/services"
)

// Store persists catalog entities in the shared SQLite database.
type Store struct {
	db  *database.DB
	now func() time.Time
}

// New returns a catalog store backed by db.
func New(db *database.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// SetClock overrides the time source used for created/updated stamps.
func (s *Store) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

const audioColumns = "id, uri, path, name, extension, format, duration_seconds, channels, bits, hertz, created_at"

func scanAudio(scanner interface{ Scan(dest ...any) error }) (*Audio, error) {
	var (
		a          Audio
		createdRaw string
	)
	if err := scanner.Scan(&a.ID, &a.URI, &a.Path, &a.Name, &a.Extension, &a.Format, &a.Duration, &a.Channels, &a.Bits, &a.Hertz, &createdRaw); err != nil {
		return nil, err
	}
	if created, err := database.ParseTime(createdRaw); err == nil {
		a.CreatedAt = created
	}
	return &a, nil
}

// FindAudioByURI returns the audio record with the given identity key, or nil.
func (s *Store) FindAudioByURI(ctx context.Context, uri string) (*Audio, error) {
	row := s.db.SQL().QueryRowContext(ctx, "SELECT "+audioColumns+" FROM audio WHERE uri = ?", uri)
	audio, err := scanAudio(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find audio by uri: %w", err)
	}
	return audio, nil
}

// GetAudio fetches an audio record by id.
func (s *Store) GetAudio(ctx context.Context, id int64) (*Audio, error) {
	row := s.db.SQL().QueryRowContext(ctx, "SELECT "+audioColumns+" FROM audio WHERE id = ?", id)
	audio, err := scanAudio(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "get audio", fmt.Sprintf("audio %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get audio: %w", err)
	}
	return audio, nil
}

// InsertResult describes what InsertAudio wrote.
type InsertResult struct {
	Audio   *Audio
	Created bool
	// Linked lists artist ids linked because the artist already existed.
	Linked []int64
	// Deferred lists artist names handed to the defer callback.
	Deferred []string
}

// DeferArtist is invoked inside the insert transaction for each artist name
// with no local match. Returning an error rolls the whole insert back.
type DeferArtist func(ctx context.Context, tx *sql.Tx, audioID int64, artist string) error

// InsertAudio records a new audio file with its tags in one transaction. For
// each artist name an existing artist is linked directly; unknown names are
// passed to deferFn. If the uri is already cataloged nothing is written and
// Created is false.
func (s *Store) InsertAudio(ctx context.Context, audio Audio, tags []Tag, artists []string, deferFn DeferArtist) (InsertResult, error) {
	if strings.TrimSpace(audio.URI) == "" {
		return InsertResult{}, services.Wrap(services.ErrValidation, "catalog", "insert audio", "uri is empty", nil)
	}
	if audio.Format == "" {
		audio.Format = UnknownFormat
	}
	now := s.now().UTC()
	audio.CreatedAt = now

	var result InsertResult
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		result = InsertResult{}
		row := tx.QueryRowContext(ctx, `INSERT INTO audio (uri, path, name, extension, format, duration_seconds, channels, bits, hertz, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(uri) DO NOTHING
			RETURNING id`,
			audio.URI, audio.Path, audio.Name, audio.Extension, audio.Format, audio.Duration, audio.Channels, audio.Bits, audio.Hertz, database.FormatTime(now))
		var id int64
		if err := row.Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				existing, findErr := scanAudio(tx.QueryRowContext(ctx, "SELECT "+audioColumns+" FROM audio WHERE uri = ?", audio.URI))
				if findErr != nil {
					return fmt.Errorf("load existing audio: %w", findErr)
				}
				result.Audio = existing
				return nil
			}
			return fmt.Errorf("insert audio: %w", err)
		}
		inserted := audio
		inserted.ID = id
		result.Audio = &inserted
		result.Created = true

		for _, tag := range tags {
			if _, err := tx.ExecContext(ctx, `INSERT INTO audio_tag (audio_id, name, value) VALUES (?, ?, ?)
				ON CONFLICT(audio_id, name, value) DO NOTHING`, id, tag.Name, tag.Value); err != nil {
				return fmt.Errorf("insert tag %s: %w", tag.Name, err)
			}
		}

		for _, name := range artists {
			name = SanitizeName(name)
			if name == "" {
				continue
			}
			artist, err := findArtistByKey(ctx, tx, NameKey(name))
			if err != nil {
				return err
			}
			if artist != nil {
				if err := linkAudioArtist(ctx, tx, id, artist.ID, now); err != nil {
					return err
				}
				result.Linked = append(result.Linked, artist.ID)
				continue
			}
			if deferFn != nil {
				if err := deferFn(ctx, tx, id, name); err != nil {
					return err
				}
			}
			result.Deferred = append(result.Deferred, name)
		}
		return nil
	})
	if err != nil {
		return InsertResult{}, err
	}
	return result, nil
}

// TagsForAudio lists the tags stored for an audio record in insertion order.
func (s *Store) TagsForAudio(ctx context.Context, audioID int64) ([]Tag, error) {
	rows, err := s.db.SQL().QueryContext(ctx, "SELECT name, value FROM audio_tag WHERE audio_id = ? ORDER BY id", audioID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()
	var tags []Tag
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.Name, &tag.Value); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// FindAudioByTag returns audio records carrying the tag name with exactly value.
func (s *Store) FindAudioByTag(ctx context.Context, name, value string) ([]*Audio, error) {
	rows, err := s.db.SQL().QueryContext(ctx, `SELECT `+prefixed("a", audioColumns)+` FROM audio a
		JOIN audio_tag t ON t.audio_id = a.id
		WHERE t.name = ? AND t.value = ?
		ORDER BY a.id`, name, value)
	if err != nil {
		return nil, fmt.Errorf("find audio by tag: %w", err)
	}
	defer rows.Close()
	return collectAudio(rows)
}

// AudioInPath lists audio records whose parent directory is exactly path.
func (s *Store) AudioInPath(ctx context.Context, path string) ([]*Audio, error) {
	rows, err := s.db.SQL().QueryContext(ctx, "SELECT "+audioColumns+" FROM audio WHERE path = ? ORDER BY name", path)
	if err != nil {
		return nil, fmt.Errorf("list audio in path: %w", err)
	}
	defer rows.Close()
	return collectAudio(rows)
}

var distinctColumns = map[string]struct{}{
	"path":      {},
	"format":    {},
	"extension": {},
}

// ListDistinct returns the distinct values of an audio column, sorted.
// Only path, format and extension may be listed.
func (s *Store) ListDistinct(ctx context.Context, column string) ([]string, error) {
	if _, ok := distinctColumns[column]; !ok {
		return nil, services.Wrap(services.ErrValidation, "catalog", "list distinct", fmt.Sprintf("column %q not allowed", column), nil)
	}
	rows, err := s.db.SQL().QueryContext(ctx, "SELECT "+column+" FROM audio GROUP BY "+column+" ORDER BY "+column)
	if err != nil {
		return nil, fmt.Errorf("list distinct %s: %w", column, err)
	}
	defer rows.Close()
	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func collectAudio(rows *sql.Rows) ([]*Audio, error) {
	var out []*Audio
	for rows.Next() {
		audio, err := scanAudio(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, audio)
	}
	return out, rows.Err()
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}

// Stats counts rows per entity.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	row := s.db.SQL().QueryRowContext(ctx, `SELECT
		(SELECT COUNT(1) FROM audio),
		(SELECT COUNT(1) FROM audio_tag),
		(SELECT COUNT(1) FROM artist),
		(SELECT COUNT(1) FROM artist_area),
		(SELECT COUNT(1) FROM directory),
		(SELECT COUNT(1) FROM audio_artist),
		(SELECT COUNT(1) FROM audio_directory),
		(SELECT COUNT(1) FROM artist_directory)`)
	if err := row.Scan(&st.Audio, &st.Tags, &st.Artists, &st.Areas, &st.Directories, &st.AudioArtists, &st.AudioDirectories, &st.ArtistFolders); err != nil {
		return Stats{}, fmt.Errorf("catalog stats: %w", err)
	}
	return st, nil
}
