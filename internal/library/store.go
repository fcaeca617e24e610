package library

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"

	"github.com/tunedeck/tunedeck/internal/database"
	"github.com/tunedeck/tunedeck/internal/playback"
)

const (
	DefaultPlaylistName = "Liked Songs"
	recentListLimit     = 10
	recentKeep          = 20
)

var (
	ErrNotFound        = errors.New("playlist not found")
	ErrDefaultPlaylist = errors.New("cannot delete the default playlist")
)

type Playlist struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	IsDefault bool             `json:"isDefault"`
	Songs     []playback.Track `json:"songs"`
}

// Store persists play history, playlists and likes.
type Store struct {
	db database.DBTX
}

func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) Recent(ctx context.Context) ([]playback.Track, error) {
	rows, err := s.db.Query(ctx,
		`SELECT video_id, title, channel, thumbnail
		 FROM recent_played
		 ORDER BY played_at DESC
		 LIMIT $1`,
		recentListLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	tracks := make([]playback.Track, 0)
	for rows.Next() {
		var t playback.Track
		if err := rows.Scan(&t.ExternalID, &t.Title, &t.Author, &t.ThumbnailURL); err != nil {
			return nil, fmt.Errorf("scan recent: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// Append records track as just played and keeps only the newest entries.
func (s *Store) Append(ctx context.Context, track playback.Track) error {
	if _, err := s.db.Exec(ctx,
		`INSERT INTO recent_played (video_id, title, channel, thumbnail)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (video_id) DO UPDATE
		 SET title = EXCLUDED.title, channel = EXCLUDED.channel, thumbnail = EXCLUDED.thumbnail, played_at = now()`,
		track.ExternalID, track.Title, track.Author, track.ThumbnailURL,
	); err != nil {
		return fmt.Errorf("upsert recent: %w", err)
	}

	if _, err := s.db.Exec(ctx,
		`DELETE FROM recent_played
		 WHERE id NOT IN (SELECT id FROM recent_played ORDER BY played_at DESC LIMIT $1)`,
		recentKeep,
	); err != nil {
		return fmt.Errorf("trim recent: %w", err)
	}
	return nil
}

type songRow struct {
	playlistID int64
	track      playback.Track
}

func (s *Store) songs(ctx context.Context, playlistID *int64) ([]songRow, error) {
	query := `SELECT playlist_id, video_id, title, channel, thumbnail FROM playlist_songs`
	args := []any{}
	if playlistID != nil {
		query += ` WHERE playlist_id = $1`
		args = append(args, *playlistID)
	}
	query += ` ORDER BY added_at, id`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query songs: %w", err)
	}
	defer rows.Close()

	var out []songRow
	for rows.Next() {
		var r songRow
		if err := rows.Scan(&r.playlistID, &r.track.ExternalID, &r.track.Title, &r.track.Author, &r.track.ThumbnailURL); err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func songsOf(rows []songRow) []playback.Track {
	return lo.Map(rows, func(r songRow, _ int) playback.Track { return r.track })
}

// Playlists lists every playlist with its songs, the default playlist first.
func (s *Store) Playlists(ctx context.Context) ([]Playlist, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, is_default FROM playlists ORDER BY is_default DESC, created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query playlists: %w", err)
	}

	type header struct {
		id        int64
		name      string
		isDefault bool
	}
	var headers []header
	for rows.Next() {
		var h header
		if err := rows.Scan(&h.id, &h.name, &h.isDefault); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		headers = append(headers, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}

	songs, err := s.songs(ctx, nil)
	if err != nil {
		return nil, err
	}
	byPlaylist := lo.GroupBy(songs, func(r songRow) int64 { return r.playlistID })

	playlists := make([]Playlist, 0, len(headers))
	for _, h := range headers {
		playlists = append(playlists, Playlist{
			ID:        strconv.FormatInt(h.id, 10),
			Name:      h.name,
			IsDefault: h.isDefault,
			Songs:     append([]playback.Track{}, songsOf(byPlaylist[h.id])...),
		})
	}
	return playlists, nil
}

func (s *Store) Playlist(ctx context.Context, id int64) (Playlist, error) {
	p := Playlist{ID: strconv.FormatInt(id, 10)}
	err := s.db.QueryRow(ctx,
		`SELECT name, is_default FROM playlists WHERE id = $1`, id,
	).Scan(&p.Name, &p.IsDefault)
	if errors.Is(err, pgx.ErrNoRows) {
		return Playlist{}, ErrNotFound
	}
	if err != nil {
		return Playlist{}, fmt.Errorf("query playlist: %w", err)
	}

	songs, err := s.songs(ctx, &id)
	if err != nil {
		return Playlist{}, err
	}
	p.Songs = append([]playback.Track{}, songsOf(songs)...)
	return p, nil
}

func (s *Store) CreatePlaylist(ctx context.Context, name string) (Playlist, error) {
	var id int64
	if err := s.db.QueryRow(ctx,
		`INSERT INTO playlists (name, is_default) VALUES ($1, false) RETURNING id`, name,
	).Scan(&id); err != nil {
		return Playlist{}, fmt.Errorf("insert playlist: %w", err)
	}
	return Playlist{ID: strconv.FormatInt(id, 10), Name: name, Songs: []playback.Track{}}, nil
}

func (s *Store) RenamePlaylist(ctx context.Context, id int64, name string) error {
	tag, err := s.db.Exec(ctx, `UPDATE playlists SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("rename playlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeletePlaylist(ctx context.Context, id int64) error {
	var isDefault bool
	err := s.db.QueryRow(ctx, `SELECT is_default FROM playlists WHERE id = $1`, id).Scan(&isDefault)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query playlist: %w", err)
	}
	if isDefault {
		return ErrDefaultPlaylist
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// AddSong adds track to the playlist, refreshing the title when it is
// already there.
func (s *Store) AddSong(ctx context.Context, playlistID int64, track playback.Track) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO playlist_songs (playlist_id, video_id, title, channel, thumbnail)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (playlist_id, video_id) DO UPDATE SET title = EXCLUDED.title`,
		playlistID, track.ExternalID, track.Title, track.Author, track.ThumbnailURL,
	)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("insert song: %w", err)
	}
	return nil
}

func (s *Store) RemoveSong(ctx context.Context, playlistID int64, videoID string) error {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM playlist_songs WHERE playlist_id = $1 AND video_id = $2`,
		playlistID, videoID,
	); err != nil {
		return fmt.Errorf("delete song: %w", err)
	}
	return nil
}

func (s *Store) defaultPlaylistID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `SELECT id FROM playlists WHERE is_default LIMIT 1`).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("query default playlist: %w", err)
	}

	if err := s.db.QueryRow(ctx,
		`INSERT INTO playlists (name, is_default) VALUES ($1, true) RETURNING id`, DefaultPlaylistName,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("create default playlist: %w", err)
	}
	return id, nil
}

// ToggleLiked adds track to the default playlist, or removes it if it is
// already there. It reports whether the track is liked afterwards.
func (s *Store) ToggleLiked(ctx context.Context, track playback.Track) (bool, error) {
	likedID, err := s.defaultPlaylistID(ctx)
	if err != nil {
		return false, err
	}

	tag, err := s.db.Exec(ctx,
		`DELETE FROM playlist_songs WHERE playlist_id = $1 AND video_id = $2`,
		likedID, track.ExternalID,
	)
	if err != nil {
		return false, fmt.Errorf("unlike song: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	if err := s.AddSong(ctx, likedID, track); err != nil {
		return false, err
	}
	return true, nil
}
