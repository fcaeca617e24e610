package playback

import (
	"time"
)

// Session binds one track to at most one player handle and keeps the
// observable playback state consistent with the handle's events.
//
// A Session is not safe for concurrent use. Every method must run on the
// Scheduler's loop; Player wraps a Session for use from other goroutines.
type Session struct {
	cfg      Config
	sched    Scheduler
	factory  Factory
	host     Host
	observer Observer

	apiReady bool
	track    Track // requested track
	bound    Track // track loaded into the live handle
	handle   Handle
	creating bool
	early    []Event
	// gen changes whenever a handle is created or destroyed. Handle events
	// and timers carry the generation they were issued under.
	gen uint64

	state       State
	buffering   bool
	position    float64
	duration    float64
	userStarted bool
	userPaused  bool
	exhausted   bool

	recoveryAttempts int
	shortPauseCount  int
	lastPlayStart    time.Time
	recoveryPending  bool
	recoverySeq      uint64
	recoveryTimer    Timer
	resumeOnReady    bool
	pendingGesture   bool
	rebuildTimer     Timer

	pollSeq   uint64
	pollTimer Timer
}

func NewSession(sched Scheduler, factory Factory, host Host, cfg Config) *Session {
	return &Session{
		cfg:      cfg.withDefaults(),
		sched:    sched,
		factory:  factory,
		host:     host,
		observer: NopObserver{},
	}
}

func (s *Session) SetObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	s.observer = o
}

// SetAPIReady marks the player backend as loaded and binds the requested
// track, if any.
func (s *Session) SetAPIReady() {
	if s.apiReady {
		return
	}
	s.apiReady = true
	if !s.track.IsZero() && s.handle == nil {
		s.bindTrack(s.track)
	}
	s.publish()
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Track:            s.track,
		State:            s.state,
		Buffering:        s.buffering,
		IsPlaying:        s.state == StatePlaying,
		Position:         s.position,
		Duration:         s.duration,
		UserStarted:      s.userStarted,
		RecoveryAttempts: s.recoveryAttempts,
		ShortPauses:      s.shortPauseCount,
		HasHandle:        s.handle != nil,
		Creating:         s.creating,
		Exhausted:        s.exhausted,
	}
}

func (s *Session) publish() {
	s.observer.SessionChanged(s.Snapshot())
}

func (s *Session) resetCounters() {
	s.recoveryAttempts = 0
	s.shortPauseCount = 0
	s.exhausted = false
}

func stopTimer(t *Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
