package library

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tunedeck/tunedeck/internal/httputil"
	"github.com/tunedeck/tunedeck/internal/playback"
)

const exportLinkExpiry = time.Hour

type playlistExport struct {
	Name       string           `json:"name"`
	ExportedAt time.Time        `json:"exportedAt"`
	Songs      []playback.Track `json:"songs"`
}

type exportResponse struct {
	DownloadURL string `json:"downloadUrl"`
	ExpiresAt   string `json:"expiresAt"`
}

// ExportPlaylist snapshots a playlist as JSON into object storage and
// returns a presigned download link.
func (h *Handler) ExportPlaylist(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "playlist export is not configured")
		return
	}
	id, ok := playlistID(r)
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "playlist not found")
		return
	}

	playlist, err := h.store.Playlist(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, "load playlist", err)
		return
	}

	now := h.now().UTC()
	body, err := json.MarshalIndent(playlistExport{Name: playlist.Name, ExportedAt: now, Songs: playlist.Songs}, "", "  ")
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to encode playlist")
		return
	}

	key := fmt.Sprintf("exports/playlists/%d/%s.json", id, uuid.NewString())
	if err := h.storage.PutObject(r.Context(), key, body, "application/json"); err != nil {
		slog.Error("library: export upload failed", "playlist_id", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to store export")
		return
	}

	url, err := h.storage.DownloadURL(r.Context(), key, playlist.Name+".json", exportLinkExpiry)
	if err != nil {
		slog.Error("library: export presign failed", "playlist_id", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate download link")
		return
	}

	slog.Info("library: playlist exported", "playlist_id", id, "songs", len(playlist.Songs), "key", key)
	httputil.WriteJSON(w, http.StatusOK, exportResponse{
		DownloadURL: url,
		ExpiresAt:   now.Add(exportLinkExpiry).Format(time.RFC3339),
	})
}
