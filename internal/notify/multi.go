package notify

import (
	"github.com/tunedeck/tunedeck/internal/playback"
)

var _ playback.Observer = (*MultiObserver)(nil)

// MultiObserver fans engine notifications out to all registered observers,
// in registration order.
type MultiObserver struct {
	observers []playback.Observer
}

// NewMultiObserver skips nil observers so optional collaborators can be
// passed unconditionally.
func NewMultiObserver(observers ...playback.Observer) *MultiObserver {
	m := &MultiObserver{}
	for _, o := range observers {
		if o != nil {
			m.observers = append(m.observers, o)
		}
	}
	return m
}

func (m *MultiObserver) SessionChanged(s playback.Snapshot) {
	for _, o := range m.observers {
		o.SessionChanged(s)
	}
}

func (m *MultiObserver) HandleCreated(t playback.Track) {
	for _, o := range m.observers {
		o.HandleCreated(t)
	}
}

func (m *MultiObserver) RecoveryAttempted(t playback.Track, attempt int) {
	for _, o := range m.observers {
		o.RecoveryAttempted(t, attempt)
	}
}

func (m *MultiObserver) RecoverySucceeded(t playback.Track, attempts int) {
	for _, o := range m.observers {
		o.RecoverySucceeded(t, attempts)
	}
}

func (m *MultiObserver) HandleRebuilt(t playback.Track, reason playback.RebuildReason) {
	for _, o := range m.observers {
		o.HandleRebuilt(t, reason)
	}
}

func (m *MultiObserver) RecoveryExhausted(t playback.Track, attempts int) {
	for _, o := range m.observers {
		o.RecoveryExhausted(t, attempts)
	}
}
