package playback

// HandleState is the raw state reported by a player handle.
type HandleState int

const (
	HandleUnstarted HandleState = iota
	HandleBuffering
	HandlePlaying
	HandlePaused
	HandleEnded
)

func (s HandleState) String() string {
	switch s {
	case HandleBuffering:
		return "buffering"
	case HandlePlaying:
		return "playing"
	case HandlePaused:
		return "paused"
	case HandleEnded:
		return "ended"
	default:
		return "unstarted"
	}
}

type EventKind int

const (
	EventReady EventKind = iota + 1
	EventStateChange
	EventError
)

// Event is emitted asynchronously by a handle. State is only meaningful for
// EventStateChange and Err only for EventError.
type Event struct {
	Kind  EventKind
	State HandleState
	Err   error
}

// EventSink receives handle events. Handles may call it from any goroutine.
type EventSink func(Event)

// Handle is a live instance of an external player. Every method may fail or
// report stale values; callers treat it as untrusted.
type Handle interface {
	Play() error
	Pause() error
	Seek(seconds float64) error
	State() HandleState
	CurrentTime() float64
	Duration() float64
	Destroy() error
}

// MediaLoader is an optional capability: handles implementing it can swap the
// loaded media in place instead of being recreated.
type MediaLoader interface {
	Load(track Track) error
}

// Muter is an optional capability for handles that expose audio muting.
// Handles without it are assumed to start audible.
type Muter interface {
	Mute() error
	Unmute() error
}

// Factory instantiates handles. Create may block; sessions call it off the
// event loop.
type Factory interface {
	Create(target string, track Track, sink EventSink) (Handle, error)
}

// Host owns the attachment point handles bind to (a socket path, a DOM
// element id). Attach returns the target for a fresh, uniquely named slot.
type Host interface {
	Attach(id string) (string, error)
	Clear() error
}
