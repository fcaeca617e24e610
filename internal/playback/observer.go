package playback

type RebuildReason string

const (
	RebuildShortPause        RebuildReason = "short-pause"
	RebuildRecoveryThreshold RebuildReason = "recovery-threshold"
)

// Observer receives session notifications on the event loop. Implementations
// must not block.
type Observer interface {
	SessionChanged(snap Snapshot)
	HandleCreated(track Track)
	RecoveryAttempted(track Track, attempt int)
	RecoverySucceeded(track Track, attempts int)
	HandleRebuilt(track Track, reason RebuildReason)
	RecoveryExhausted(track Track, attempts int)
}

// NopObserver ignores every notification. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) SessionChanged(Snapshot)            {}
func (NopObserver) HandleCreated(Track)                {}
func (NopObserver) RecoveryAttempted(Track, int)       {}
func (NopObserver) RecoverySucceeded(Track, int)       {}
func (NopObserver) HandleRebuilt(Track, RebuildReason) {}
func (NopObserver) RecoveryExhausted(Track, int)       {}
