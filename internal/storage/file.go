package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/maruel/jsondb/internal/value"
)

// load reads the backing file into e.root. Every failure degrades to an
// empty document.
func (e *Engine) load() {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := os.ReadFile(e.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := createEmpty(e.path); err != nil {
			slog.Warn("Failed to create document file, starting empty", "path", e.path, "err", err)
		}
		return
	}
	if err != nil {
		slog.Warn("Failed to read document file, starting empty", "path", e.path, "err", err)
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return
	}
	root, err := value.Parse(data)
	if err != nil {
		slog.Warn("Document file is not valid JSON, starting empty", "path", e.path, "err", err)
		return
	}
	if !root.IsObject() {
		slog.Warn("Document file does not hold an object, starting empty", "path", e.path, "kind", root.Kind().String())
		return
	}
	e.root = root
}

func createEmpty(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// writeFileAtomic replaces path with data. The data is written to a temp file
// in the same directory, synced, then renamed over path.
func writeFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := f.Name()
	if _, err := f.Write(data); err != nil {
		return errors.Join(fmt.Errorf("failed to write temp file: %w", err), f.Close(), os.Remove(tmpPath))
	}
	if err := f.Sync(); err != nil {
		return errors.Join(fmt.Errorf("failed to sync temp file: %w", err), f.Close(), os.Remove(tmpPath))
	}
	if err := f.Close(); err != nil {
		return errors.Join(fmt.Errorf("failed to close temp file: %w", err), os.Remove(tmpPath))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Join(fmt.Errorf("failed to rename temp file: %w", err), os.Remove(tmpPath))
	}
	return nil
}
