package diagnostics

import (
	"context"
	"fmt"
	"strings"

	"github.com/mssola/useragent"

	"github.com/tunedeck/tunedeck/internal/database"
)

const (
	KindAttempt   = "attempt"
	KindRecovered = "recovered"
	KindRebuilt   = "rebuilt"
	KindExhausted = "exhausted"

	SourceBrowser = "browser"
	SourceEngine  = "engine"
)

func validKind(kind string) bool {
	switch kind {
	case KindAttempt, KindRecovered, KindRebuilt, KindExhausted:
		return true
	}
	return false
}

// Report is one recovery outcome, from a browser client or the host engine.
type Report struct {
	Kind     string
	Source   string
	VideoID  string
	Attempts int
	Reason   string
	Browser  string
	OS       string
	Device   string
	Country  string
}

func insertReport(ctx context.Context, db database.DBTX, r Report) error {
	if _, err := db.Exec(ctx,
		`INSERT INTO playback_reports (kind, source, video_id, attempts, reason, browser, os, device, country)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.Kind, r.Source, r.VideoID, r.Attempts, r.Reason, r.Browser, r.OS, r.Device, r.Country,
	); err != nil {
		return fmt.Errorf("insert playback report: %w", err)
	}
	return nil
}

type client struct {
	browser string
	os      string
	device  string
}

func parseClient(ua string) client {
	if strings.TrimSpace(ua) == "" {
		return client{browser: "Other", os: "Other", device: "Desktop"}
	}
	parsed := useragent.New(ua)

	browser, _ := parsed.Browser()
	if browser == "" || parsed.Bot() {
		browser = "Other"
	}
	os := parsed.OSInfo().Name
	if os == "" {
		os = "Other"
	}

	device := "Desktop"
	lower := strings.ToLower(ua)
	switch {
	case strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet"):
		device = "Tablet"
	case parsed.Mobile():
		device = "Mobile"
	}
	return client{browser: browser, os: os, device: device}
}
