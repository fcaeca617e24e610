package nowplaying

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tunedeck/tunedeck/internal/httputil"
	"github.com/tunedeck/tunedeck/internal/library"
	"github.com/tunedeck/tunedeck/internal/playback"
)

// Transport is the host player surface, implemented by *playback.Player.
type Transport interface {
	Snapshot(ctx context.Context) (playback.Snapshot, error)
	SwitchTrack(ctx context.Context, track playback.Track) (playback.Snapshot, error)
	TogglePlayPause(ctx context.Context) (playback.Snapshot, error)
	SeekRelative(ctx context.Context, delta float64) (playback.Snapshot, error)
	SeekAbsolute(ctx context.Context, fraction float64) (playback.Snapshot, error)
	Stop(ctx context.Context) (playback.Snapshot, error)
}

// RecentRecorder is told about every track switched to.
type RecentRecorder interface {
	Append(ctx context.Context, track playback.Track) error
}

type Handler struct {
	player        Transport
	recent        RecentRecorder
	recentTimeout time.Duration
	wg            sync.WaitGroup
}

func NewHandler(player Transport, recent RecentRecorder) *Handler {
	return &Handler{player: player, recent: recent, recentTimeout: 5 * time.Second}
}

// Wait blocks until background recent-played writes have finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(r.Context(), w, "snapshot", h.player.Snapshot)
}

func (h *Handler) SwitchTrack(w http.ResponseWriter, r *http.Request) {
	track, msg := library.DecodeTrack(w, r)
	if msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	snap, err := h.player.SwitchTrack(r.Context(), track)
	if err != nil {
		writePlayerError(w, "switch track", err)
		return
	}
	h.recordRecent(track)
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) recordRecent(track playback.Track) {
	if h.recent == nil {
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), h.recentTimeout)
		defer cancel()
		if err := h.recent.Append(ctx, track); err != nil {
			slog.Error("nowplaying: failed to record recent track", "video_id", track.ExternalID, "error", err)
		}
	}()
}

func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	h.respond(r.Context(), w, "toggle playback", h.player.TogglePlayPause)
}

type seekRequest struct {
	DeltaSeconds *float64 `json:"deltaSeconds"`
	Fraction     *float64 `json:"fraction"`
}

func (h *Handler) Seek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case req.DeltaSeconds != nil && req.Fraction != nil:
		httputil.WriteError(w, http.StatusBadRequest, "provide either deltaSeconds or fraction, not both")
	case req.DeltaSeconds != nil:
		delta := *req.DeltaSeconds
		h.respond(r.Context(), w, "seek", func(ctx context.Context) (playback.Snapshot, error) {
			return h.player.SeekRelative(ctx, delta)
		})
	case req.Fraction != nil:
		fraction := *req.Fraction
		h.respond(r.Context(), w, "seek", func(ctx context.Context) (playback.Snapshot, error) {
			return h.player.SeekAbsolute(ctx, fraction)
		})
	default:
		httputil.WriteError(w, http.StatusBadRequest, "deltaSeconds or fraction is required")
	}
}

func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	h.respond(r.Context(), w, "stop playback", h.player.Stop)
}

func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, action string, op func(context.Context) (playback.Snapshot, error)) {
	snap, err := op(ctx)
	if err != nil {
		writePlayerError(w, action, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func writePlayerError(w http.ResponseWriter, action string, err error) {
	if errors.Is(err, playback.ErrLoopClosed) {
		httputil.WriteError(w, http.StatusServiceUnavailable, "player is shutting down")
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		httputil.WriteError(w, http.StatusServiceUnavailable, "player is busy")
		return
	}
	slog.Error("nowplaying: "+action+" failed", "error", err)
	httputil.WriteError(w, http.StatusInternalServerError, "failed to "+action)
}
