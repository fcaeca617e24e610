package playback

import "fmt"

// State is the session's view of playback. It only changes in response to
// handle events, track switches and teardown.
type State int

const (
	StateIdle State = iota
	StateReady
	StatePlaying
	StatePaused
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is the published, read-only copy of a session.
type Snapshot struct {
	Track            Track   `json:"track"`
	State            State   `json:"state"`
	Buffering        bool    `json:"buffering"`
	IsPlaying        bool    `json:"isPlaying"`
	Position         float64 `json:"position"`
	Duration         float64 `json:"duration"`
	UserStarted      bool    `json:"userStarted"`
	RecoveryAttempts int     `json:"recoveryAttempts"`
	ShortPauses      int     `json:"shortPauses"`
	HasHandle        bool    `json:"hasHandle"`
	Creating         bool    `json:"creating"`
	Exhausted        bool    `json:"exhausted"`
}
