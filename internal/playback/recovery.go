package playback

import (
	"log/slog"
	"time"
)

func (s *Session) handleEvent(ev Event) {
	switch ev.Kind {
	case EventReady:
		s.onReady()
	case EventStateChange:
		switch ev.State {
		case HandlePlaying:
			s.onPlaying()
		case HandlePaused:
			s.onStopped(StatePaused)
		case HandleEnded:
			s.onStopped(StateEnded)
		case HandleBuffering:
			s.buffering = true
			s.publish()
		}
	case EventError:
		slog.Warn("playback: player error", "video_id", s.bound.ExternalID, "error", ev.Err)
		s.recover()
	}
}

func (s *Session) onReady() {
	if !s.resumeOnReady {
		s.recoveryAttempts = 0
	}
	// Start muted so an automatic play is never rejected for lack of a
	// gesture. A handle the user already unmuted stays unmuted.
	if m, ok := s.handle.(Muter); ok && !s.userStarted {
		if err := m.Mute(); err != nil {
			slog.Warn("playback: mute on ready failed", "video_id", s.bound.ExternalID, "error", err)
		}
	}
	if d := s.handle.Duration(); d > 0 {
		s.duration = d
	}
	s.state = StateReady
	s.publish()

	switch {
	case s.pendingGesture:
		s.pendingGesture = false
		s.resumeOnReady = false
		s.StartUserPlayback()
	case s.resumeOnReady:
		s.resumeOnReady = false
		if !s.userStarted {
			return
		}
		if m, ok := s.handle.(Muter); ok {
			if err := m.Unmute(); err != nil {
				slog.Warn("playback: unmute after rebuild failed", "video_id", s.bound.ExternalID, "error", err)
			}
		}
		s.recover()
	}
}

func (s *Session) onPlaying() {
	if s.recoveryAttempts > 0 {
		s.observer.RecoverySucceeded(s.bound, s.recoveryAttempts)
	}
	s.cancelRecovery()
	s.state = StatePlaying
	s.buffering = false
	s.userPaused = false
	s.resetCounters()
	s.lastPlayStart = s.sched.Now()
	if d := s.handle.Duration(); d > 0 {
		s.duration = d
	}
	s.startPolling()
	s.publish()
}

func (s *Session) onStopped(state State) {
	s.state = state
	s.buffering = false
	s.stopPolling()
	s.position = s.handle.CurrentTime()

	requested := s.userPaused
	s.userPaused = false
	if requested || !s.prematurePause(s.position) {
		s.publish()
		return
	}

	s.shortPauseCount++
	slog.Warn("playback: premature pause",
		"video_id", s.bound.ExternalID,
		"position", s.position,
		"short_pauses", s.shortPauseCount,
	)
	if s.shortPauseCount >= s.cfg.ShortPauseLimit {
		s.recoveryAttempts = 0
		s.rebuild(RebuildShortPause)
		return
	}
	s.publish()
	s.recover()
}

// prematurePause reports whether a pause at position looks like the stream
// being killed right after it started rather than a real pause.
func (s *Session) prematurePause(position float64) bool {
	if !s.userStarted || s.lastPlayStart.IsZero() {
		return false
	}
	return s.sched.Now().Sub(s.lastPlayStart) < s.cfg.PrematureWindow &&
		position < s.cfg.PrematurePosition
}

// recover runs one bounded recovery attempt: back off, play, then check the
// handle after a settle delay. Only one attempt is pending at a time.
func (s *Session) recover() {
	if !s.userStarted || s.handle == nil || s.recoveryPending {
		return
	}
	if s.recoveryAttempts >= s.cfg.MaxRecoveryAttempts {
		s.exhaust()
		return
	}

	s.recoveryAttempts++
	attempt := s.recoveryAttempts
	s.recoveryPending = true
	s.recoverySeq++
	gen, seq := s.gen, s.recoverySeq
	s.observer.RecoveryAttempted(s.bound, attempt)
	slog.Info("playback: recovery attempt", "video_id", s.bound.ExternalID, "attempt", attempt)

	backoff := time.Duration(attempt) * s.cfg.BackoffStep
	s.recoveryTimer = s.sched.AfterFunc(backoff, func() {
		if !s.recoveryLive(gen, seq) {
			return
		}
		if err := s.handle.Play(); err != nil {
			slog.Warn("playback: recovery play failed", "video_id", s.bound.ExternalID, "attempt", attempt, "error", err)
		}
		s.recoveryTimer = s.sched.AfterFunc(s.cfg.SettleDelay, func() {
			if !s.recoveryLive(gen, seq) {
				return
			}
			s.recoveryPending = false
			s.recoveryTimer = nil
			s.settle(attempt)
		})
	})
	s.publish()
}

func (s *Session) recoveryLive(gen, seq uint64) bool {
	return gen == s.gen && seq == s.recoverySeq && s.handle != nil && s.recoveryPending
}

func (s *Session) settle(attempt int) {
	if s.handle.State() == HandlePlaying {
		// The playing event resets the counters.
		return
	}
	switch {
	case attempt >= s.cfg.MaxRecoveryAttempts:
		s.exhaust()
	case attempt == s.cfg.RecreateThreshold:
		s.rebuild(RebuildRecoveryThreshold)
	default:
		s.recover()
	}
}

func (s *Session) exhaust() {
	if s.exhausted {
		return
	}
	s.exhausted = true
	slog.Error("playback: recovery exhausted", "video_id", s.bound.ExternalID, "attempts", s.recoveryAttempts)
	s.observer.RecoveryExhausted(s.bound, s.recoveryAttempts)
	s.publish()
}

func (s *Session) cancelRecovery() {
	s.recoverySeq++
	s.recoveryPending = false
	stopTimer(&s.recoveryTimer)
}
