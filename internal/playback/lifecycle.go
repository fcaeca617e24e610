package playback

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// bindTrack points the handle at track. While a creation is in flight the
// call is coalesced: the creation re-checks the requested track when it
// completes, so the latest request wins.
func (s *Session) bindTrack(track Track) {
	if track.IsZero() || s.creating {
		return
	}

	if s.handle != nil {
		if loader, ok := s.handle.(MediaLoader); ok {
			err := loader.Load(track)
			if err == nil {
				s.bound = track
				return
			}
			slog.Warn("playback: in-place load failed, recreating handle", "video_id", track.ExternalID, "error", err)
		}
		s.destroyHandle()
	}

	s.startCreate(track)
}

func (s *Session) startCreate(track Track) {
	target, err := s.host.Attach("tunedeck-" + uuid.NewString())
	if err != nil {
		slog.Error("playback: player host unavailable", "video_id", track.ExternalID, "error", err)
		return
	}

	s.creating = true
	s.gen++
	gen := s.gen
	sink := func(ev Event) {
		s.sched.Post(func() { s.dispatch(gen, ev) })
	}
	factory := s.factory

	s.sched.Async(func() func() {
		h, err := createHandle(factory, target, track, sink)
		return func() { s.finishCreate(gen, track, h, err) }
	})
}

func createHandle(factory Factory, target string, track Track, sink EventSink) (h Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			h, err = nil, fmt.Errorf("create handle: panic: %v", r)
		}
	}()
	return factory.Create(target, track, sink)
}

func (s *Session) finishCreate(gen uint64, track Track, h Handle, err error) {
	s.creating = false
	early := s.early
	s.early = nil

	if err != nil {
		slog.Error("playback: handle creation failed", "video_id", track.ExternalID, "error", err)
		if !s.track.IsZero() && !s.track.Same(track) {
			s.bindTrack(s.track)
		}
		s.publish()
		return
	}

	if gen != s.gen || s.track.IsZero() {
		// Torn down while the handle was being built.
		destroyQuietly(h, track)
		if !s.track.IsZero() && s.handle == nil {
			s.bindTrack(s.track)
		}
		s.publish()
		return
	}

	s.handle = h
	s.bound = track
	s.observer.HandleCreated(track)

	if !s.track.Same(track) {
		s.bindTrack(s.track)
		s.publish()
		return
	}

	for _, ev := range early {
		if s.handle == nil || gen != s.gen {
			break
		}
		s.handleEvent(ev)
	}
	s.publish()
}

func (s *Session) dispatch(gen uint64, ev Event) {
	if gen != s.gen {
		return
	}
	if s.handle == nil {
		if s.creating {
			s.early = append(s.early, ev)
		}
		return
	}
	s.handleEvent(ev)
}

// destroyHandle drops the live handle and invalidates every callback issued
// for it. An in-flight creation is invalidated as well.
func (s *Session) destroyHandle() {
	s.stopPolling()
	s.cancelRecovery()
	if s.handle != nil || s.creating {
		s.gen++
	}
	if s.handle != nil {
		destroyQuietly(s.handle, s.bound)
		s.handle = nil
	}
	s.bound = Track{}
	s.early = nil
	s.state = StateIdle
	s.buffering = false
}

func destroyQuietly(h Handle, track Track) {
	if h == nil {
		return
	}
	if err := h.Destroy(); err != nil {
		slog.Warn("playback: destroy handle failed", "video_id", track.ExternalID, "error", err)
	}
}

// rebuild destroys the handle and creates a fresh one for the same track
// after RebuildDelay. Playback resumes through bounded recovery once the new
// handle reports ready.
func (s *Session) rebuild(reason RebuildReason) {
	track := s.bound
	if track.IsZero() {
		track = s.track
	}
	s.destroyHandle()
	s.shortPauseCount = 0
	s.resumeOnReady = true
	s.observer.HandleRebuilt(track, reason)
	slog.Warn("playback: rebuilding player handle", "video_id", track.ExternalID, "reason", string(reason))

	gen := s.gen
	stopTimer(&s.rebuildTimer)
	s.rebuildTimer = s.sched.AfterFunc(s.cfg.RebuildDelay, func() {
		if gen != s.gen || s.handle != nil || s.creating || !s.track.Same(track) {
			return
		}
		s.rebuildTimer = nil
		s.bindTrack(track)
		s.publish()
	})
	s.publish()
}

// Teardown releases the handle and the host and returns the session to idle.
// It is idempotent.
func (s *Session) Teardown() {
	stopTimer(&s.rebuildTimer)
	s.destroyHandle()
	if err := s.host.Clear(); err != nil {
		slog.Warn("playback: clear player host failed", "error", err)
	}

	s.track = Track{}
	s.position = 0
	s.duration = 0
	s.userStarted = false
	s.userPaused = false
	s.resumeOnReady = false
	s.pendingGesture = false
	s.lastPlayStart = time.Time{}
	s.resetCounters()
	s.publish()
}
