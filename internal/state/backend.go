package state

import (
	"errors"
	"os"
	"path/filepath"
)

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// backend stores the raw document bytes. read returns nil, nil when nothing
// has been written yet. write replaces the whole document or nothing.
type backend interface {
	read() ([]byte, error)
	write(data []byte) error
	location() string
	close() error
}

// fileBackend keeps the document in a single JSON file.
type fileBackend struct {
	path string
}

func (b *fileBackend) location() string { return b.path }

func (b *fileBackend) read() ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// write replaces the file through a temp file and rename so a crash leaves
// either the old or the new document, never a truncated one.
func (b *fileBackend) write(data []byte) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return err
	}
	committed = true

	// Persist the rename itself; not every platform supports syncing a directory.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

func (b *fileBackend) close() error { return nil }
