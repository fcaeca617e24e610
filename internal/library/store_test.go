package library

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/tunedeck/tunedeck/internal/playback"
)

var songCols = []string{"playlist_id", "video_id", "title", "channel", "thumbnail"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestAppendUpsertsThenTrims(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)
	track := playback.Track{ExternalID: "abc", Title: "Song", Author: "Band", ThumbnailURL: "https://i.ytimg.com/abc.jpg"}

	mock.ExpectExec(`INSERT INTO recent_played`).
		WithArgs("abc", "Song", "Band", "https://i.ytimg.com/abc.jpg").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM recent_played`).
		WithArgs(recentKeep).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := store.Append(context.Background(), track); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestPlaylistsGroupsSongs(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery(`SELECT id, name, is_default FROM playlists`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "is_default"}).
			AddRow(int64(1), "Liked Songs", true).
			AddRow(int64(2), "Road trip", false).
			AddRow(int64(3), "Empty", false))
	mock.ExpectQuery(`SELECT playlist_id, video_id, title, channel, thumbnail FROM playlist_songs`).
		WillReturnRows(pgxmock.NewRows(songCols).
			AddRow(int64(2), "a", "A", "X", "").
			AddRow(int64(1), "b", "B", "Y", "").
			AddRow(int64(2), "c", "C", "Z", ""))

	got, err := store.Playlists(context.Background())
	if err != nil {
		t.Fatalf("playlists: %v", err)
	}
	want := []Playlist{
		{ID: "1", Name: "Liked Songs", IsDefault: true, Songs: []playback.Track{{ExternalID: "b", Title: "B", Author: "Y"}}},
		{ID: "2", Name: "Road trip", Songs: []playback.Track{
			{ExternalID: "a", Title: "A", Author: "X"},
			{ExternalID: "c", Title: "C", Author: "Z"},
		}},
		{ID: "3", Name: "Empty", Songs: []playback.Track{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("playlists mismatch (-want +got):\n%s", diff)
	}
}

func TestPlaylistNotFound(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery(`SELECT name, is_default FROM playlists WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnError(pgx.ErrNoRows)

	if _, err := store.Playlist(context.Background(), 9); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRenameMissingPlaylist(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectExec(`UPDATE playlists SET name`).
		WithArgs("New", int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := store.RenamePlaylist(context.Background(), 4, "New"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteDefaultPlaylistIsRefused(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery(`SELECT is_default FROM playlists WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"is_default"}).AddRow(true))

	if err := store.DeletePlaylist(context.Background(), 1); !errors.Is(err, ErrDefaultPlaylist) {
		t.Errorf("expected ErrDefaultPlaylist, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestAddSongToMissingPlaylist(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectExec(`INSERT INTO playlist_songs`).
		WithArgs(int64(7), "abc", "Song", "", "").
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := store.AddSong(context.Background(), 7, playback.Track{ExternalID: "abc", Title: "Song"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestToggleLikedAddsWhenAbsent(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery(`SELECT id FROM playlists WHERE is_default`).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO playlists`).
		WithArgs(DefaultPlaylistName).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec(`DELETE FROM playlist_songs`).
		WithArgs(int64(1), "abc").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO playlist_songs`).
		WithArgs(int64(1), "abc", "Song", "Band", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	liked, err := store.ToggleLiked(context.Background(), playback.Track{ExternalID: "abc", Title: "Song", Author: "Band"})
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !liked {
		t.Error("expected track to be liked")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestToggleLikedRemovesWhenPresent(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery(`SELECT id FROM playlists WHERE is_default`).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec(`DELETE FROM playlist_songs`).
		WithArgs(int64(1), "abc").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	liked, err := store.ToggleLiked(context.Background(), playback.Track{ExternalID: "abc", Title: "Song"})
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if liked {
		t.Error("expected track to be unliked")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}
