package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"tonearm/internal/database"
	"tonearm/internal/services"
)

// DirectoryName is the display name for a directory path: its last element.
func DirectoryName(path string) string {
	cleaned := filepath.Clean(path)
	name := filepath.Base(cleaned)
	if name == "." || name == string(filepath.Separator) {
		return cleaned
	}
	return name
}

// UpsertDirectory creates the directory row for path or touches updated_at
// on the existing one.
func (s *Store) UpsertDirectory(ctx context.Context, path string) (*Directory, error) {
	if strings.TrimSpace(path) == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "upsert directory", "path is empty", nil)
	}
	stamp := database.FormatTime(s.now())
	var (
		dir        Directory
		createdRaw string
		updatedRaw string
	)
	err := database.RetryOnBusy(ctx, func() error {
		return s.db.SQL().QueryRowContext(ctx, `INSERT INTO directory (path, name, created_at, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET updated_at = excluded.updated_at
			RETURNING id, path, name, created_at, updated_at`,
			path, DirectoryName(path), stamp, stamp).Scan(&dir.ID, &dir.Path, &dir.Name, &createdRaw, &updatedRaw)
	})
	if err != nil {
		return nil, fmt.Errorf("upsert directory: %w", err)
	}
	dir.CreatedAt, _ = database.ParseTime(createdRaw)
	dir.UpdatedAt, _ = database.ParseTime(updatedRaw)
	return &dir, nil
}

// LinkDirectoryAudio links every audio record whose parent path equals the
// directory's path. It returns the number of new links.
func (s *Store) LinkDirectoryAudio(ctx context.Context, dir *Directory) (int64, error) {
	res, err := s.db.ExecWithRetry(ctx, `INSERT INTO audio_directory (audio_id, directory_id, created_at)
		SELECT id, ?, ? FROM audio WHERE path = ?
		ON CONFLICT(audio_id, directory_id) DO NOTHING`, dir.ID, database.FormatTime(s.now()), dir.Path)
	if err != nil {
		return 0, fmt.Errorf("link directory audio: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// BackfillArtistDirectories creates the artist_directory rows implied by
// existing audio_artist and audio_directory links.
func (s *Store) BackfillArtistDirectories(ctx context.Context) (int64, error) {
	res, err := s.db.ExecWithRetry(ctx, `INSERT INTO artist_directory (artist_id, directory_id, created_at)
		SELECT aa.artist_id, ad.directory_id, ? FROM audio_artist aa
		JOIN audio_directory ad ON ad.audio_id = aa.audio_id
		WHERE true
		ON CONFLICT(artist_id, directory_id) DO NOTHING`, database.FormatTime(s.now()))
	if err != nil {
		return 0, fmt.Errorf("backfill artist directories: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// FindDirectory returns the directory row for path, or nil.
func (s *Store) FindDirectory(ctx context.Context, path string) (*Directory, error) {
	var (
		dir        Directory
		createdRaw string
		updatedRaw string
	)
	err := s.db.SQL().QueryRowContext(ctx, "SELECT id, path, name, created_at, updated_at FROM directory WHERE path = ?", path).
		Scan(&dir.ID, &dir.Path, &dir.Name, &createdRaw, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find directory: %w", err)
	}
	dir.CreatedAt, _ = database.ParseTime(createdRaw)
	dir.UpdatedAt, _ = database.ParseTime(updatedRaw)
	return &dir, nil
}

// DirectoriesForArtist lists the directories linked to an artist.
func (s *Store) DirectoriesForArtist(ctx context.Context, artistID int64) ([]string, error) {
	rows, err := s.db.SQL().QueryContext(ctx, `SELECT d.path FROM directory d
		JOIN artist_directory ad ON ad.directory_id = d.id
		WHERE ad.artist_id = ?
		ORDER BY d.path`, artistID)
	if err != nil {
		return nil, fmt.Errorf("directories for artist: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
