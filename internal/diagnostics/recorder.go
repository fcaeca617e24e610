package diagnostics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tunedeck/tunedeck/internal/database"
	"github.com/tunedeck/tunedeck/internal/playback"
)

// Recorder stores the host engine's recovery outcomes next to the browser
// reports. Writes happen off the event loop.
type Recorder struct {
	playback.NopObserver

	db      database.DBTX
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewRecorder(db database.DBTX) *Recorder {
	return &Recorder{db: db, timeout: 10 * time.Second}
}

func (r *Recorder) RecoverySucceeded(track playback.Track, attempts int) {
	r.record(Report{Kind: KindRecovered, VideoID: track.ExternalID, Attempts: attempts})
}

func (r *Recorder) HandleRebuilt(track playback.Track, reason playback.RebuildReason) {
	r.record(Report{Kind: KindRebuilt, VideoID: track.ExternalID, Reason: string(reason)})
}

func (r *Recorder) RecoveryExhausted(track playback.Track, attempts int) {
	r.record(Report{Kind: KindExhausted, VideoID: track.ExternalID, Attempts: attempts})
}

func (r *Recorder) record(report Report) {
	report.Source = SourceEngine
	report.Browser = "mpv"
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := insertReport(ctx, r.db, report); err != nil {
			slog.Error("diagnostics: failed to record engine report", "kind", report.Kind, "video_id", report.VideoID, "error", err)
		}
	}()
}

// Wait blocks until pending writes have finished.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
