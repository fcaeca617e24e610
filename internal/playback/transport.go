package playback

import (
	"log/slog"
	"math"
	"time"

	"github.com/samber/lo"
)

// StartUserPlayback is the gesture-backed first play: unmute, then play.
// A rejected play is handed to bounded recovery.
func (s *Session) StartUserPlayback() {
	if s.handle == nil {
		s.requestHandle()
		return
	}

	s.userStarted = true
	s.userPaused = false
	s.cancelRecovery()
	s.resetCounters()

	var err error
	if m, ok := s.handle.(Muter); ok {
		err = m.Unmute()
	}
	if err == nil {
		err = s.handle.Play()
	}
	s.publish()
	if err != nil {
		slog.Warn("playback: user play rejected", "video_id", s.bound.ExternalID, "error", err)
		s.recover()
	}
}

// requestHandle repairs a session left without a handle. The gesture is
// replayed once the new handle is ready.
func (s *Session) requestHandle() {
	if s.track.IsZero() || !s.apiReady {
		return
	}
	s.pendingGesture = true
	s.bindTrack(s.track)
	s.publish()
}

func (s *Session) TogglePlayPause() {
	if s.handle == nil {
		s.requestHandle()
		return
	}

	if s.handle.State() == HandlePlaying {
		s.userPaused = true
		if err := s.handle.Pause(); err != nil {
			s.userPaused = false
			slog.Warn("playback: pause failed", "video_id", s.bound.ExternalID, "error", err)
		}
		return
	}

	if !s.userStarted {
		s.StartUserPlayback()
		return
	}

	// An explicit gesture starts a fresh recovery cycle.
	s.userPaused = false
	s.cancelRecovery()
	s.resetCounters()
	s.publish()
	if err := s.handle.Play(); err != nil {
		slog.Warn("playback: play failed", "video_id", s.bound.ExternalID, "error", err)
		s.recover()
	}
}

// SeekRelative moves the position by delta seconds, clamped to the media.
func (s *Session) SeekRelative(delta float64) {
	if s.handle == nil {
		return
	}
	current := s.handle.CurrentTime()
	if current == 0 {
		current = s.position
	}
	s.seek(s.clampPosition(current + delta))
}

// SeekAbsolute seeks to fraction (0..1) of the duration. Without a known
// duration it does nothing.
func (s *Session) SeekAbsolute(fraction float64) {
	if s.handle == nil {
		return
	}
	duration := s.knownDuration()
	if duration <= 0 || math.IsNaN(fraction) {
		return
	}
	s.seek(lo.Clamp(fraction, 0, 1) * duration)
}

func (s *Session) seek(target float64) {
	if err := s.handle.Seek(target); err != nil {
		slog.Warn("playback: seek failed", "video_id", s.bound.ExternalID, "target", target, "error", err)
		return
	}
	s.position = target
	s.publish()
}

func (s *Session) knownDuration() float64 {
	if d := s.handle.Duration(); d > 0 {
		s.duration = d
	}
	return s.duration
}

// clampPosition limits target to [0, duration]. An unknown duration only
// bounds the position from below.
func (s *Session) clampPosition(target float64) float64 {
	if duration := s.knownDuration(); duration > 0 {
		return lo.Clamp(target, 0, duration)
	}
	return math.Max(0, target)
}

// SwitchTrack selects a new track. All session and recovery state is reset;
// the new track always starts muted and unconfirmed.
func (s *Session) SwitchTrack(track Track) {
	if track.IsZero() {
		return
	}

	stopTimer(&s.rebuildTimer)
	s.cancelRecovery()
	s.stopPolling()

	s.track = track
	s.state = StateIdle
	s.buffering = false
	s.position = 0
	s.duration = 0
	s.userStarted = false
	s.userPaused = false
	s.resumeOnReady = false
	s.pendingGesture = false
	s.lastPlayStart = time.Time{}
	s.resetCounters()

	if s.apiReady {
		s.bindTrack(track)
	}
	s.publish()
}
