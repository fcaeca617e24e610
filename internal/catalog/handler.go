package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tunedeck/tunedeck/internal/httputil"
	"github.com/tunedeck/tunedeck/internal/playback"
)

type Searcher interface {
	Search(ctx context.Context, query string) ([]playback.Track, error)
}

type Handler struct {
	searcher Searcher
}

func NewHandler(searcher Searcher) *Handler {
	return &Handler{searcher: searcher}
}

type searchResult struct {
	Query   string           `json:"query"`
	Results []playback.Track `json:"results"`
}

type upstreamFailure struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		httputil.WriteError(w, http.StatusBadRequest, "missing query param")
		return
	}

	slog.Info("catalog: search", "query", query, "origin", r.Header.Get("Origin"))

	tracks, err := h.searcher.Search(r.Context(), query)
	if err != nil {
		var upstream *UpstreamError
		if errors.As(err, &upstream) {
			slog.Error("catalog: youtube API failed", "query", query, "status", upstream.Status)
			details := upstream.Body
			if details == nil {
				details = json.RawMessage("null")
			}
			httputil.WriteJSON(w, upstream.Status, upstreamFailure{Error: "YouTube API failed", Details: details})
			return
		}
		slog.Error("catalog: search failed", "query", query, "error", err)
		details, _ := json.Marshal(err.Error())
		httputil.WriteJSON(w, http.StatusInternalServerError, upstreamFailure{Error: "YouTube API failed", Details: details})
		return
	}

	if tracks == nil {
		tracks = []playback.Track{}
	}
	httputil.WriteJSON(w, http.StatusOK, searchResult{Query: query, Results: tracks})
}
