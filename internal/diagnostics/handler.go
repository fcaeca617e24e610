package diagnostics

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/tunedeck/tunedeck/internal/database"
	"github.com/tunedeck/tunedeck/internal/httputil"
	"github.com/tunedeck/tunedeck/internal/validate"
)

const maxReasonLength = 200

// GeoResolver maps a client IP to a country code.
type GeoResolver interface {
	Lookup(ip string) (country, city string)
}

type Handler struct {
	db  database.DBTX
	geo GeoResolver
}

func NewHandler(db database.DBTX, geo GeoResolver) *Handler {
	return &Handler{db: db, geo: geo}
}

type reportRequest struct {
	Kind     string `json:"kind"`
	VideoID  string `json:"videoId"`
	Attempts int    `json:"attempts"`
	Reason   string `json:"reason"`
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}

// Create stores a recovery outcome reported by a browser player.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validKind(req.Kind) {
		httputil.WriteError(w, http.StatusBadRequest, "kind must be one of attempt, recovered, rebuilt, exhausted")
		return
	}
	videoID := strings.TrimSpace(req.VideoID)
	if videoID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "videoId is required")
		return
	}
	if msg := validate.VideoID(videoID); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Attempts < 0 {
		httputil.WriteError(w, http.StatusBadRequest, "attempts must not be negative")
		return
	}
	if len(req.Reason) > maxReasonLength {
		req.Reason = req.Reason[:maxReasonLength]
	}

	c := parseClient(r.UserAgent())
	var country string
	if h.geo != nil {
		country, _ = h.geo.Lookup(clientIP(r))
	}

	report := Report{
		Kind:     req.Kind,
		Source:   SourceBrowser,
		VideoID:  videoID,
		Attempts: req.Attempts,
		Reason:   req.Reason,
		Browser:  c.browser,
		OS:       c.os,
		Device:   c.device,
		Country:  country,
	}
	if err := insertReport(r.Context(), h.db, report); err != nil {
		slog.Error("diagnostics: failed to store report", "kind", req.Kind, "video_id", videoID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to store report")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type summaryRow struct {
	Kind    string `json:"kind"`
	Source  string `json:"source"`
	Browser string `json:"browser"`
	Count   int64  `json:"count"`
}

type summaryResponse struct {
	Days      int              `json:"days"`
	ByKind    map[string]int64 `json:"byKind"`
	ByBrowser []summaryRow     `json:"byBrowser"`
}

// Summary aggregates recent reports by kind, source and browser.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	days := parseDays(r.URL.Query().Get("days"))

	rows, err := h.db.Query(r.Context(),
		`SELECT kind, source, browser, COUNT(*)
		 FROM playback_reports
		 WHERE created_at > now() - make_interval(days => $1)
		 GROUP BY kind, source, browser
		 ORDER BY COUNT(*) DESC, kind, source, browser`,
		days,
	)
	if err != nil {
		slog.Error("diagnostics: summary query failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load summary")
		return
	}
	defer rows.Close()

	breakdown := make([]summaryRow, 0)
	for rows.Next() {
		var row summaryRow
		if err := rows.Scan(&row.Kind, &row.Source, &row.Browser, &row.Count); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to load summary")
			return
		}
		breakdown = append(breakdown, row)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load summary")
		return
	}

	byKind := lo.MapValues(
		lo.GroupBy(breakdown, func(row summaryRow) string { return row.Kind }),
		func(rows []summaryRow, _ string) int64 {
			return lo.SumBy(rows, func(row summaryRow) int64 { return row.Count })
		},
	)

	httputil.WriteJSON(w, http.StatusOK, summaryResponse{Days: days, ByKind: byKind, ByBrowser: breakdown})
}

func parseDays(raw string) int {
	days := 7
	if raw == "" {
		return days
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 90 {
		days = n
	}
	return days
}
