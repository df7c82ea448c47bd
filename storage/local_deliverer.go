package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalDir writes artifacts into a directory on disk.
type LocalDir struct {
	Dir string
}

// Deliver writes data to Dir/name through a temporary file so a reader
// never sees a half-written artifact.
func (l LocalDir) Deliver(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return "", fmt.Errorf("local: create output dir: %w", err)
	}

	path := filepath.Join(l.Dir, name)
	tmp, err := os.CreateTemp(l.Dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("local: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("local: write %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("local: close %q: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("local: rename to %q: %w", path, err)
	}
	return path, nil
}
