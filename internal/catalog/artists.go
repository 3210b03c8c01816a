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

const artistColumns = "id, name, musicbrainz_name, musicbrainz_id, sort_name, artist_type, gender, disambiguation, artist_area_id, created_at"

func scanArtist(scanner interface{ Scan(dest ...any) error }) (*Artist, error) {
	var (
		a          Artist
		mbid       sql.NullString
		artistType sql.NullString
		gender     sql.NullString
		areaID     sql.NullInt64
		createdRaw string
	)
	if err := scanner.Scan(&a.ID, &a.Name, &a.MusicBrainzName, &mbid, &a.SortName, &artistType, &gender, &a.Disambiguation, &areaID, &createdRaw); err != nil {
		return nil, err
	}
	a.MusicBrainzID = mbid.String
	a.Type = ArtistType(artistType.String)
	a.Gender = Gender(gender.String)
	a.AreaID = areaID.Int64
	if created, err := database.ParseTime(createdRaw); err == nil {
		a.CreatedAt = created
	}
	return &a, nil
}

func findArtistByKey(ctx context.Context, q database.Querier, key string) (*Artist, error) {
	artist, err := scanArtist(q.QueryRowContext(ctx, "SELECT "+artistColumns+" FROM artist WHERE name_key = ?", key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find artist: %w", err)
	}
	return artist, nil
}

// FindArtistByName looks an artist up by exact, case-insensitive name. It
// returns nil when no artist matches.
func (s *Store) FindArtistByName(ctx context.Context, name string) (*Artist, error) {
	key := NameKey(name)
	if key == "" {
		return nil, nil
	}
	return findArtistByKey(ctx, s.db.SQL(), key)
}

// GetArtist fetches an artist by id.
func (s *Store) GetArtist(ctx context.Context, id int64) (*Artist, error) {
	artist, err := scanArtist(s.db.SQL().QueryRowContext(ctx, "SELECT "+artistColumns+" FROM artist WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "get artist", fmt.Sprintf("artist %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get artist: %w", err)
	}
	return artist, nil
}

// linkAudioArtist links audio to artist and back-fills artist_directory rows
// for every directory already holding the audio.
func linkAudioArtist(ctx context.Context, q database.Querier, audioID, artistID int64, now time.Time) error {
	stamp := database.FormatTime(now)
	if _, err := q.ExecContext(ctx, `INSERT INTO audio_artist (audio_id, artist_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(audio_id, artist_id) DO NOTHING`, audioID, artistID, stamp); err != nil {
		return fmt.Errorf("link audio artist: %w", err)
	}
	if _, err := q.ExecContext(ctx, `INSERT INTO artist_directory (artist_id, directory_id, created_at)
		SELECT ?, directory_id, ? FROM audio_directory WHERE audio_id = ?
		ON CONFLICT(artist_id, directory_id) DO NOTHING`, artistID, stamp, audioID); err != nil {
		return fmt.Errorf("link artist directories: %w", err)
	}
	return nil
}

// LinkAudioArtist links an existing artist to an audio record, including the
// artist_directory rows for the audio's directories.
func (s *Store) LinkAudioArtist(ctx context.Context, audioID, artistID int64) error {
	now := s.now()
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		return linkAudioArtist(ctx, tx, audioID, artistID, now)
	})
}

func upsertArea(ctx context.Context, q database.Querier, area Area) (int64, error) {
	name := strings.TrimSpace(area.Name)
	if name == "" {
		return 0, nil
	}
	if _, err := q.ExecContext(ctx, `INSERT INTO artist_area (area_type, name, sort_name, disambiguation) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING`, area.Type, name, area.SortName, area.Disambiguation); err != nil {
		return 0, fmt.Errorf("insert artist area: %w", err)
	}
	var id int64
	if err := q.QueryRowContext(ctx, "SELECT id FROM artist_area WHERE name = ?", name).Scan(&id); err != nil {
		return 0, fmt.Errorf("load artist area: %w", err)
	}
	return id, nil
}

// SaveResolvedArtist stores an artist (and its area, deduplicated by name)
// and links it to audioID in a single transaction. When an artist with the
// same name key already exists it is reused and Created is false.
func (s *Store) SaveResolvedArtist(ctx context.Context, audioID int64, artist Artist, area *Area) (*Artist, bool, error) {
	artist.Name = SanitizeName(artist.Name)
	key := NameKey(artist.Name)
	if key == "" {
		return nil, false, services.Wrap(services.ErrValidation, "catalog", "save artist", "artist name is empty", nil)
	}
	now := s.now().UTC()

	var (
		saved   *Artist
		created bool
	)
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		saved, created = nil, false
		areaID := artist.AreaID
		if area != nil {
			id, err := upsertArea(ctx, tx, *area)
			if err != nil {
				return err
			}
			areaID = id
		}

		row := tx.QueryRowContext(ctx, `INSERT INTO artist (name, name_key, musicbrainz_name, musicbrainz_id, sort_name, artist_type, gender, disambiguation, artist_area_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(name_key) DO NOTHING
			RETURNING `+artistColumns,
			artist.Name, key, artist.MusicBrainzName, database.NullableString(artist.MusicBrainzID), artist.SortName,
			database.NullableString(string(artist.Type)), database.NullableString(string(artist.Gender)),
			artist.Disambiguation, database.NullableInt64(areaID), database.FormatTime(now))
		inserted, err := scanArtist(row)
		switch {
		case err == nil:
			saved, created = inserted, true
		case errors.Is(err, sql.ErrNoRows):
			existing, findErr := findArtistByKey(ctx, tx, key)
			if findErr != nil {
				return findErr
			}
			if existing == nil {
				return fmt.Errorf("artist %q vanished during upsert", artist.Name)
			}
			saved = existing
		default:
			return fmt.Errorf("insert artist: %w", err)
		}

		if audioID > 0 {
			return linkAudioArtist(ctx, tx, audioID, saved.ID, now)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return saved, created, nil
}

// FindArea returns the area with the given name, or nil.
func (s *Store) FindArea(ctx context.Context, name string) (*Area, error) {
	var a Area
	err := s.db.SQL().QueryRowContext(ctx, "SELECT id, area_type, name, sort_name, disambiguation FROM artist_area WHERE name = ?", strings.TrimSpace(name)).
		Scan(&a.ID, &a.Type, &a.Name, &a.SortName, &a.Disambiguation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find area: %w", err)
	}
	return &a, nil
}

// ArtistsForAudio lists artists linked to an audio record.
func (s *Store) ArtistsForAudio(ctx context.Context, audioID int64) ([]*Artist, error) {
	rows, err := s.db.SQL().QueryContext(ctx, `SELECT `+prefixed("ar", artistColumns)+` FROM artist ar
		JOIN audio_artist aa ON aa.artist_id = ar.id
		WHERE aa.audio_id = ?
		ORDER BY ar.name`, audioID)
	if err != nil {
		return nil, fmt.Errorf("artists for audio: %w", err)
	}
	defer rows.Close()
	var out []*Artist
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, artist)
	}
	return out, rows.Err()
}

// ListArtists returns every artist with link counts, sorted by name.
func (s *Store) ListArtists(ctx context.Context) ([]ArtistSummary, error) {
	rows, err := s.db.SQL().QueryContext(ctx, `SELECT `+prefixed("ar", artistColumns)+`,
			COALESCE(area.name, ''),
			(SELECT COUNT(1) FROM audio_artist aa WHERE aa.artist_id = ar.id),
			(SELECT COUNT(1) FROM artist_directory ad WHERE ad.artist_id = ar.id)
		FROM artist ar
		LEFT JOIN artist_area area ON area.id = ar.artist_area_id
		ORDER BY ar.name_key`)
	if err != nil {
		return nil, fmt.Errorf("list artists: %w", err)
	}
	defer rows.Close()

	var out []ArtistSummary
	for rows.Next() {
		var (
			summary    ArtistSummary
			mbid       sql.NullString
			artistType sql.NullString
			gender     sql.NullString
			areaID     sql.NullInt64
			createdRaw string
		)
		if err := rows.Scan(&summary.ID, &summary.Name, &summary.MusicBrainzName, &mbid, &summary.SortName, &artistType, &gender,
			&summary.Disambiguation, &areaID, &createdRaw, &summary.AreaName, &summary.AudioCount, &summary.FolderCount); err != nil {
			return nil, err
		}
		summary.MusicBrainzID = mbid.String
		summary.Type = ArtistType(artistType.String)
		summary.Gender = Gender(gender.String)
		summary.AreaID = areaID.Int64
		if created, err := database.ParseTime(createdRaw); err == nil {
			summary.CreatedAt = created
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}
