package mpv

import (
	"fmt"
	"os"
	"path/filepath"
)

// SocketHost hands out IPC socket paths inside Dir.
type SocketHost struct {
	Dir string
}

func (h SocketHost) Attach(id string) (string, error) {
	if err := os.MkdirAll(h.Dir, 0o700); err != nil {
		return "", fmt.Errorf("create socket dir: %w", err)
	}
	path := filepath.Join(h.Dir, id+".sock")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("remove stale socket: %w", err)
	}
	return path, nil
}

// Clear removes sockets left behind by handles that were not destroyed
// cleanly.
func (h SocketHost) Clear() error {
	matches, err := filepath.Glob(filepath.Join(h.Dir, "*.sock"))
	if err != nil {
		return fmt.Errorf("list sockets: %w", err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove socket %s: %w", m, err)
		}
	}
	return nil
}
