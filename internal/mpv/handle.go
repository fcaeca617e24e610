package mpv

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/tunedeck/tunedeck/internal/playback"
)

// observed properties, keyed by the observe_property id mpv echoes back.
var observed = []string{"pause", "time-pos", "duration", "paused-for-cache", "eof-reached"}

// Handle is a playback.Handle backed by an mpv process. It also implements
// playback.MediaLoader and playback.Muter.
type Handle struct {
	ipc        *ipcConn
	sink       playback.EventSink
	process    *exec.Cmd
	socketPath string
	// reaper is set for factory-spawned handles; Destroy then shuts the
	// process down in the background.
	reaper *sync.WaitGroup

	mu        sync.Mutex
	track     playback.Track
	state     playback.HandleState
	paused    bool
	buffering bool
	position  float64
	duration  float64
	loaded    bool
	destroyed bool
}

// Dial connects to the IPC socket of an already running mpv and starts
// observing its playback properties.
func Dial(socketPath string, sink playback.EventSink) (*Handle, error) {
	conn, err := net.DialTimeout("unix", socketPath, requestTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial mpv socket: %w", err)
	}

	h := &Handle{sink: sink, socketPath: socketPath, paused: true}
	h.ipc = newIPCConn(conn, h.onEvent)

	for i, name := range observed {
		if _, err := h.ipc.command("observe_property", i+1, name); err != nil {
			_ = h.ipc.Close()
			return nil, fmt.Errorf("observe %s: %w", name, err)
		}
	}
	return h, nil
}

func (h *Handle) onEvent(msg message) {
	switch msg.Event {
	case "file-loaded":
		h.mu.Lock()
		h.loaded = true
		h.position = 0
		paused := h.paused
		h.mu.Unlock()
		h.emit(playback.Event{Kind: playback.EventReady})
		// Pause changes before the file loaded were held back.
		if paused {
			h.mu.Lock()
			h.state = playback.HandlePaused
			h.mu.Unlock()
		} else {
			h.setState(playback.HandlePlaying)
		}
	case "end-file":
		switch msg.Reason {
		case "eof":
			h.setState(playback.HandleEnded)
		case "error":
			h.emit(playback.Event{Kind: playback.EventError, Err: fmt.Errorf("mpv end-file: %s", msg.FileError)})
		}
	case "property-change":
		h.onProperty(msg.Name, msg.Data)
	}
}

func (h *Handle) onProperty(name string, data json.RawMessage) {
	switch name {
	case "time-pos", "duration":
		var v float64
		if err := json.Unmarshal(data, &v); err != nil {
			return
		}
		h.mu.Lock()
		if name == "time-pos" {
			h.position = v
		} else {
			h.duration = v
		}
		h.mu.Unlock()
	case "pause":
		var paused bool
		if err := json.Unmarshal(data, &paused); err != nil {
			return
		}
		h.mu.Lock()
		h.paused = paused
		loaded := h.loaded
		h.mu.Unlock()
		if !loaded {
			return
		}
		if paused {
			h.setState(playback.HandlePaused)
		} else {
			h.setState(playback.HandlePlaying)
		}
	case "paused-for-cache":
		var waiting bool
		if err := json.Unmarshal(data, &waiting); err != nil {
			return
		}
		h.mu.Lock()
		h.buffering = waiting
		paused := h.paused
		h.mu.Unlock()
		switch {
		case waiting:
			h.setState(playback.HandleBuffering)
		case !paused:
			h.setState(playback.HandlePlaying)
		}
	case "eof-reached":
		var eof bool
		if err := json.Unmarshal(data, &eof); err == nil && eof {
			h.setState(playback.HandleEnded)
		}
	}
}

func (h *Handle) setState(state playback.HandleState) {
	h.mu.Lock()
	if h.state == state {
		h.mu.Unlock()
		return
	}
	h.state = state
	h.mu.Unlock()
	h.emit(playback.Event{Kind: playback.EventStateChange, State: state})
}

func (h *Handle) emit(ev playback.Event) {
	h.mu.Lock()
	destroyed := h.destroyed
	h.mu.Unlock()
	if destroyed || h.sink == nil {
		return
	}
	h.sink(ev)
}

func (h *Handle) setProperty(name string, value any) error {
	if _, err := h.ipc.command("set_property", name, value); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}

func (h *Handle) setPause(paused bool) error {
	if err := h.setProperty("pause", paused); err != nil {
		return err
	}
	h.mu.Lock()
	h.paused = paused
	h.mu.Unlock()
	return nil
}

// Play resumes the current file. mpv unloads a file that played to the end,
// so after EOF the bound track is loaded again and starts from the top.
func (h *Handle) Play() error {
	h.mu.Lock()
	restart := h.state == playback.HandleEnded && !h.track.IsZero()
	track := h.track
	h.mu.Unlock()

	if err := h.setPause(false); err != nil {
		return err
	}
	if !restart {
		return nil
	}
	return h.loadFile(track)
}

func (h *Handle) Pause() error {
	return h.setPause(true)
}

func (h *Handle) Seek(seconds float64) error {
	if _, err := h.ipc.command("seek", seconds, "absolute"); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	h.mu.Lock()
	h.position = seconds
	h.mu.Unlock()
	return nil
}

func (h *Handle) Mute() error {
	return h.setProperty("mute", true)
}

func (h *Handle) Unmute() error {
	return h.setProperty("mute", false)
}

// Load replaces the current file. mpv keeps the pause flag across loads, so
// the new track stays paused until played.
func (h *Handle) Load(track playback.Track) error {
	if err := h.setPause(true); err != nil {
		return err
	}
	return h.loadFile(track)
}

func (h *Handle) loadFile(track playback.Track) error {
	h.mu.Lock()
	h.track = track
	h.loaded = false
	h.state = playback.HandleUnstarted
	h.position = 0
	h.duration = 0
	h.mu.Unlock()

	if _, err := h.ipc.command("loadfile", WatchURL(track.ExternalID), "replace"); err != nil {
		return fmt.Errorf("loadfile: %w", err)
	}
	return nil
}

func (h *Handle) State() playback.HandleState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Handle) CurrentTime() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position
}

func (h *Handle) Duration() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.duration
}

// Destroy asks mpv to quit, closes the socket and reaps the process. No
// events are delivered once it returns. Factory-spawned handles finish
// shutting down in the background; Factory.Wait blocks until they are gone.
func (h *Handle) Destroy() error {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return nil
	}
	h.destroyed = true
	h.mu.Unlock()

	if h.reaper == nil {
		return h.shutdown()
	}
	h.reaper.Add(1)
	go func() {
		defer h.reaper.Done()
		if err := h.shutdown(); err != nil {
			slog.Warn("mpv: shutdown failed", "socket", h.socketPath, "error", err)
		}
	}()
	return nil
}

func (h *Handle) shutdown() error {
	_, quitErr := h.ipc.command("quit")
	closeErr := h.ipc.Close()
	if h.process != nil {
		stopProcess(h.process, 2*time.Second)
	}
	if h.socketPath != "" {
		if err := os.Remove(h.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("mpv: failed to remove socket", "path", h.socketPath, "error", err)
		}
	}
	if quitErr != nil && !errors.Is(quitErr, errConnClosed) {
		return fmt.Errorf("quit mpv: %w", quitErr)
	}
	if closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
		return fmt.Errorf("close mpv socket: %w", closeErr)
	}
	return nil
}

// stopProcess waits up to grace for the process to exit and kills it after.
func stopProcess(cmd *exec.Cmd, grace time.Duration) {
	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()
	select {
	case <-exited:
	case <-time.After(grace):
		_ = cmd.Process.Kill()
		<-exited
	}
}
