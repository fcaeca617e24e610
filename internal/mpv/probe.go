package mpv

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
)

// Probe returns a loader init that checks binary is runnable.
func Probe(binary string) func(ctx context.Context) error {
	if binary == "" {
		binary = defaultBinary
	}
	return func(ctx context.Context) error {
		path, err := exec.LookPath(binary)
		if err != nil {
			return fmt.Errorf("find mpv: %w", err)
		}
		output, err := exec.CommandContext(ctx, path, "--version").Output()
		if err != nil {
			return fmt.Errorf("mpv --version: %w", err)
		}
		version, _, _ := bytes.Cut(output, []byte("\n"))
		slog.Info("mpv: found player", "path", path, "version", string(bytes.TrimSpace(version)))
		return nil
	}
}
