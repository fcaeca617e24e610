package playback

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// manualScheduler runs the session on the test goroutine. Time only moves
// when the test calls Advance.
type manualScheduler struct {
	now    time.Time
	seq    int
	timers []*manualTimer
	posted []func()
	async  []func() func()
}

type manualTimer struct {
	at      time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (m *manualScheduler) Now() time.Time { return m.now }

func (m *manualScheduler) Post(f func()) { m.posted = append(m.posted, f) }

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	m.seq++
	t := &manualTimer{at: m.now.Add(d), seq: m.seq, f: f}
	m.timers = append(m.timers, t)
	return t
}

func (m *manualScheduler) Async(work func() func()) { m.async = append(m.async, work) }

func (m *manualScheduler) drain() {
	for len(m.posted) > 0 || len(m.async) > 0 {
		if len(m.posted) > 0 {
			f := m.posted[0]
			m.posted = m.posted[1:]
			f()
			continue
		}
		work := m.async[0]
		m.async = m.async[1:]
		if next := work(); next != nil {
			next()
		}
	}
}

func (m *manualScheduler) nextDue(end time.Time) *manualTimer {
	var due []*manualTimer
	for _, t := range m.timers {
		if !t.fired && !t.stopped && !t.at.After(end) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].seq < due[j].seq
		}
		return due[i].at.Before(due[j].at)
	})
	return due[0]
}

// Advance runs everything that becomes due within d, in time order.
func (m *manualScheduler) Advance(d time.Duration) {
	end := m.now.Add(d)
	for {
		m.drain()
		t := m.nextDue(end)
		if t == nil {
			break
		}
		if t.at.After(m.now) {
			m.now = t.at
		}
		t.fired = true
		t.f()
	}
	m.now = end
}

func (m *manualScheduler) armed() int {
	n := 0
	for _, t := range m.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

type fakeHandle struct {
	mu        sync.Mutex
	id        int
	track     Track
	sink      EventSink
	state     HandleState
	position  float64
	duration  float64
	muted     bool
	plays     int
	pauses    int
	seeks     []float64
	loads     []Track
	destroyed int
	playErr   error
	onPlay    func(h *fakeHandle)
}

func (h *fakeHandle) emit(ev Event) {
	h.mu.Lock()
	sink := h.sink
	h.mu.Unlock()
	sink(ev)
}

func (h *fakeHandle) setState(st HandleState) {
	h.mu.Lock()
	h.state = st
	h.mu.Unlock()
	h.emit(Event{Kind: EventStateChange, State: st})
}

func (h *fakeHandle) setPosition(p float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.position = p
}

func (h *fakeHandle) Play() error {
	h.mu.Lock()
	h.plays++
	err := h.playErr
	onPlay := h.onPlay
	h.mu.Unlock()
	if err != nil {
		return err
	}
	if onPlay != nil {
		onPlay(h)
	}
	return nil
}

func (h *fakeHandle) Pause() error {
	h.mu.Lock()
	h.pauses++
	h.mu.Unlock()
	h.setState(HandlePaused)
	return nil
}

func (h *fakeHandle) Seek(seconds float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seeks = append(h.seeks, seconds)
	h.position = seconds
	return nil
}

func (h *fakeHandle) State() HandleState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *fakeHandle) CurrentTime() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position
}

func (h *fakeHandle) Duration() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.duration
}

func (h *fakeHandle) Destroy() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.destroyed++
	return nil
}

func (h *fakeHandle) Load(track Track) error {
	h.mu.Lock()
	h.track = track
	h.loads = append(h.loads, track)
	h.state = HandleUnstarted
	h.position = 0
	h.mu.Unlock()
	h.emit(Event{Kind: EventReady})
	return nil
}

func (h *fakeHandle) Mute() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.muted = true
	return nil
}

func (h *fakeHandle) Unmute() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.muted = false
	return nil
}

func (h *fakeHandle) isMuted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.muted
}

func (h *fakeHandle) playCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.plays
}

func (h *fakeHandle) destroyCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}

// basicHandle exposes only the required Handle methods.
type basicHandle struct{ h *fakeHandle }

func (b basicHandle) Play() error                { return b.h.Play() }
func (b basicHandle) Pause() error               { return b.h.Pause() }
func (b basicHandle) Seek(seconds float64) error { return b.h.Seek(seconds) }
func (b basicHandle) State() HandleState         { return b.h.State() }
func (b basicHandle) CurrentTime() float64       { return b.h.CurrentTime() }
func (b basicHandle) Duration() float64          { return b.h.Duration() }
func (b basicHandle) Destroy() error             { return b.h.Destroy() }

type fakeFactory struct {
	mu        sync.Mutex
	handles   []*fakeHandle
	targets   []string
	err       error
	panicMsg  string
	basic     bool
	configure func(h *fakeHandle)
	maxLive   int
	// lateReady leaves the READY event to the test.
	lateReady bool
}

func (f *fakeFactory) Create(target string, track Track, sink EventSink) (Handle, error) {
	f.mu.Lock()
	if f.panicMsg != "" {
		msg := f.panicMsg
		f.mu.Unlock()
		panic(msg)
	}
	if f.err != nil {
		err := f.err
		f.mu.Unlock()
		return nil, err
	}
	h := &fakeHandle{id: len(f.handles) + 1, track: track, sink: sink, duration: 200}
	if f.configure != nil {
		f.configure(h)
	}
	f.handles = append(f.handles, h)
	f.targets = append(f.targets, target)
	if live := f.liveLocked(); live > f.maxLive {
		f.maxLive = live
	}
	basic, lateReady := f.basic, f.lateReady
	f.mu.Unlock()

	if !lateReady {
		sink(Event{Kind: EventReady})
	}
	if basic {
		return basicHandle{h}, nil
	}
	return h, nil
}

func (f *fakeFactory) liveLocked() int {
	n := 0
	for _, h := range f.handles {
		if h.destroyCount() == 0 {
			n++
		}
	}
	return n
}

func (f *fakeFactory) live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.liveLocked()
}

func (f *fakeFactory) created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handles)
}

func (f *fakeFactory) handle(i int) *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.handles) {
		return nil
	}
	return f.handles[i]
}

type fakeHost struct {
	mu       sync.Mutex
	attached []string
	clears   int
	err      error
}

func (h *fakeHost) Attach(id string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return "", h.err
	}
	h.attached = append(h.attached, id)
	return "/tmp/" + id + ".sock", nil
}

func (h *fakeHost) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clears++
	return nil
}

var errHostMissing = errors.New("host element missing")

type recordingObserver struct {
	NopObserver
	snaps     []Snapshot
	attempts  []int
	rebuilds  []RebuildReason
	exhausted int
	succeeded []int
	created   int
}

func (o *recordingObserver) SessionChanged(s Snapshot)        { o.snaps = append(o.snaps, s) }
func (o *recordingObserver) HandleCreated(Track)              { o.created++ }
func (o *recordingObserver) RecoveryAttempted(_ Track, n int) { o.attempts = append(o.attempts, n) }
func (o *recordingObserver) RecoverySucceeded(_ Track, n int) { o.succeeded = append(o.succeeded, n) }
func (o *recordingObserver) HandleRebuilt(_ Track, r RebuildReason) {
	o.rebuilds = append(o.rebuilds, r)
}
func (o *recordingObserver) RecoveryExhausted(Track, int) { o.exhausted++ }
