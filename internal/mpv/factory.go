package mpv

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/tunedeck/tunedeck/internal/playback"
)

const defaultBinary = "mpv"

// WatchURL is the page mpv hands to its stream extractor for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
}

// Factory spawns one mpv process per handle.
type Factory struct {
	Binary     string
	SocketWait time.Duration
	ExtraArgs  []string
	socketPoll time.Duration

	reaping sync.WaitGroup
}

func NewFactory(binary string) *Factory {
	if binary == "" {
		binary = defaultBinary
	}
	return &Factory{Binary: binary, SocketWait: 5 * time.Second}
}

func buildArgs(socketPath, mediaURL string, extra []string) []string {
	args := []string{
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--pause",
		"--mute=yes",
		"--input-ipc-server=" + socketPath,
	}
	args = append(args, extra...)
	return append(args, mediaURL)
}

// Create starts mpv paused and muted on track and connects to its IPC
// socket. The process is killed if the socket never comes up.
func (f *Factory) Create(target string, track playback.Track, sink playback.EventSink) (playback.Handle, error) {
	binary := f.Binary
	if binary == "" {
		binary = defaultBinary
	}

	cmd := exec.Command(binary, buildArgs(target, WatchURL(track.ExternalID), f.ExtraArgs)...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start mpv: %w", err)
	}
	slog.Info("mpv: process started", "pid", cmd.Process.Pid, "video_id", track.ExternalID, "socket", target)

	wait := f.SocketWait
	if wait <= 0 {
		wait = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	if err := waitForSocket(ctx, target, f.socketPoll); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}

	h, err := Dial(target, sink)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}
	h.process = cmd
	h.reaper = &f.reaping
	h.mu.Lock()
	h.track = track
	h.mu.Unlock()
	return h, nil
}

// Wait blocks until every destroyed handle's process has exited.
func (f *Factory) Wait() {
	f.reaping.Wait()
}

func waitForSocket(ctx context.Context, path string, poll time.Duration) error {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for mpv socket %s: %w", path, ctx.Err())
		case <-ticker.C:
		}
	}
}
