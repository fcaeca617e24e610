package library

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tunedeck/tunedeck/internal/database"
	"github.com/tunedeck/tunedeck/internal/httputil"
	"github.com/tunedeck/tunedeck/internal/playback"
	"github.com/tunedeck/tunedeck/internal/validate"
)

// ExportStorage receives playlist exports.
type ExportStorage interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
	DownloadURL(ctx context.Context, key, filename string, expiry time.Duration) (string, error)
}

type Handler struct {
	store   *Store
	storage ExportStorage
	now     func() time.Time
}

func NewHandler(db database.DBTX, storage ExportStorage) *Handler {
	return &Handler{store: NewStore(db), storage: storage, now: time.Now}
}

func (h *Handler) Store() *Store {
	return h.store
}

type trackRequest struct {
	VideoID   string `json:"videoId"`
	Title     string `json:"title"`
	Channel   string `json:"channel"`
	Thumbnail string `json:"thumbnail"`
}

func (req trackRequest) track() playback.Track {
	return playback.Track{
		ExternalID:   strings.TrimSpace(req.VideoID),
		Title:        strings.TrimSpace(req.Title),
		Author:       strings.TrimSpace(req.Channel),
		ThumbnailURL: strings.TrimSpace(req.Thumbnail),
	}
}

// DecodeTrack reads a track body and returns a validation message when the
// track is unusable.
func DecodeTrack(w http.ResponseWriter, r *http.Request) (playback.Track, string) {
	var req trackRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		return playback.Track{}, "invalid request body"
	}
	t := req.track()
	if t.ExternalID == "" || t.Title == "" {
		return playback.Track{}, "videoId and title are required"
	}
	for _, msg := range []string{
		validate.VideoID(t.ExternalID),
		validate.Title(t.Title),
		validate.Channel(t.Author),
		validate.ThumbnailURL(t.ThumbnailURL),
	} {
		if msg != "" {
			return playback.Track{}, msg
		}
	}
	return t, ""
}

func playlistID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) ListRecent(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.store.Recent(r.Context())
	if err != nil {
		slog.Error("library: recent fetch failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch recent tracks")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tracks)
}

func (h *Handler) AddRecent(w http.ResponseWriter, r *http.Request) {
	track, msg := DecodeTrack(w, r)
	if msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	if err := h.store.Append(r.Context(), track); err != nil {
		slog.Error("library: recent save failed", "video_id", track.ExternalID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to save recent track")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.store.Playlists(r.Context())
	if err != nil {
		slog.Error("library: playlist fetch failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list playlists")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"playlists": playlists})
}

type playlistNameRequest struct {
	Name string `json:"name"`
}

func decodePlaylistName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req playlistNameRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		httputil.WriteError(w, http.StatusBadRequest, "playlist name is required")
		return "", false
	}
	if msg := validate.PlaylistName(name); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return "", false
	}
	return name, true
}

func (h *Handler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	name, ok := decodePlaylistName(w, r)
	if !ok {
		return
	}
	playlist, err := h.store.CreatePlaylist(r.Context(), name)
	if err != nil {
		slog.Error("library: playlist create failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create playlist")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, playlist)
}

func (h *Handler) RenamePlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := playlistID(r)
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "playlist not found")
		return
	}
	name, ok := decodePlaylistName(w, r)
	if !ok {
		return
	}
	if err := h.store.RenamePlaylist(r.Context(), id, name); err != nil {
		h.writeStoreError(w, "rename playlist", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := playlistID(r)
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "playlist not found")
		return
	}
	if err := h.store.DeletePlaylist(r.Context(), id); err != nil {
		h.writeStoreError(w, "delete playlist", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddSong(w http.ResponseWriter, r *http.Request) {
	id, ok := playlistID(r)
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "playlist not found")
		return
	}
	track, msg := DecodeTrack(w, r)
	if msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	if err := h.store.AddSong(r.Context(), id, track); err != nil {
		h.writeStoreError(w, "add song", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveSong(w http.ResponseWriter, r *http.Request) {
	id, ok := playlistID(r)
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "playlist not found")
		return
	}
	if err := h.store.RemoveSong(r.Context(), id, chi.URLParam(r, "videoId")); err != nil {
		h.writeStoreError(w, "remove song", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ToggleLiked(w http.ResponseWriter, r *http.Request) {
	track, msg := DecodeTrack(w, r)
	if msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	liked, err := h.store.ToggleLiked(r.Context(), track)
	if err != nil {
		h.writeStoreError(w, "toggle like", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

func (h *Handler) writeStoreError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, "playlist not found")
	case errors.Is(err, ErrDefaultPlaylist):
		httputil.WriteError(w, http.StatusForbidden, "cannot delete the default Liked Songs playlist")
	default:
		slog.Error("library: "+action+" failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to "+action)
	}
}
