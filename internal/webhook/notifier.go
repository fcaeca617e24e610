package webhook

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tunedeck/tunedeck/internal/playback"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// TrackNotifier announces track.started the first time a track reaches
// PLAYING. Recovery resumes of the same track are not announced again.
type TrackNotifier struct {
	playback.NopObserver

	dispatcher Dispatcher
	timeout    time.Duration
	now        func() time.Time

	announced string
	wg        sync.WaitGroup
}

func NewTrackNotifier(d Dispatcher) *TrackNotifier {
	return &TrackNotifier{dispatcher: d, timeout: 30 * time.Second, now: time.Now}
}

func (n *TrackNotifier) SessionChanged(s playback.Snapshot) {
	// A switch resets UserStarted, so replaying a track announces it again.
	if s.Track.IsZero() || !s.UserStarted {
		n.announced = ""
	}
	if !s.IsPlaying || s.Track.IsZero() || s.Track.ExternalID == n.announced {
		return
	}
	n.announced = s.Track.ExternalID

	event := Event{
		Name:      EventTrackStarted,
		Timestamp: n.now().UTC(),
		Data: map[string]any{
			"videoId":   s.Track.ExternalID,
			"title":     s.Track.Title,
			"channel":   s.Track.Author,
			"thumbnail": s.Track.ThumbnailURL,
			"duration":  s.Duration,
		},
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.dispatcher.Dispatch(ctx, event); err != nil {
			slog.Warn("webhook: track.started delivery failed", "video_id", event.Data["videoId"], "error", err)
		}
	}()
}

// Wait blocks until in-flight deliveries finish.
func (n *TrackNotifier) Wait() {
	n.wg.Wait()
}
