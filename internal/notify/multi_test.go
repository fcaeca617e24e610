package notify

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tunedeck/tunedeck/internal/playback"
)

type mockObserver struct {
	name  string
	calls *[]string
}

func (m mockObserver) record(call string) { *m.calls = append(*m.calls, m.name+":"+call) }

func (m mockObserver) SessionChanged(playback.Snapshot)                     { m.record("changed") }
func (m mockObserver) HandleCreated(playback.Track)                         { m.record("created") }
func (m mockObserver) RecoveryAttempted(playback.Track, int)                { m.record("attempted") }
func (m mockObserver) RecoverySucceeded(playback.Track, int)                { m.record("succeeded") }
func (m mockObserver) HandleRebuilt(playback.Track, playback.RebuildReason) { m.record("rebuilt") }
func (m mockObserver) RecoveryExhausted(playback.Track, int)                { m.record("exhausted") }

func TestMultiObserver_FansOutInOrder(t *testing.T) {
	var calls []string
	m := NewMultiObserver(mockObserver{"a", &calls}, nil, mockObserver{"b", &calls})

	track := playback.Track{ExternalID: "abc"}
	m.SessionChanged(playback.Snapshot{})
	m.HandleCreated(track)
	m.RecoveryAttempted(track, 1)
	m.RecoverySucceeded(track, 1)
	m.HandleRebuilt(track, playback.RebuildShortPause)
	m.RecoveryExhausted(track, 4)

	want := []string{
		"a:changed", "b:changed",
		"a:created", "b:created",
		"a:attempted", "b:attempted",
		"a:succeeded", "b:succeeded",
		"a:rebuilt", "b:rebuilt",
		"a:exhausted", "b:exhausted",
	}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestMultiObserver_Empty(t *testing.T) {
	m := NewMultiObserver()
	m.SessionChanged(playback.Snapshot{})
	m.RecoveryExhausted(playback.Track{}, 4)
}
