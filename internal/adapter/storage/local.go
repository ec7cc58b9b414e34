package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/semmidev/daydump/internal/domain"
)

// LocalStorage is the output tree on disk. Relative paths use forward
// slashes.
type LocalStorage struct {
	basePath string
}

func NewLocal(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (l *LocalStorage) GetPath(rel string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(rel))
}

// EnsureDir creates rel and its parents. A non-directory already sitting at
// rel is an error.
func (l *LocalStorage) EnsureDir(rel string) error {
	dir := l.GetPath(rel)

	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%s: %w", dir, domain.ErrNotDirectory)
	case err == nil:
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("failed to stat %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Exists reports whether a regular file is present at rel. Its content is
// never looked at.
func (l *LocalStorage) Exists(rel string) (bool, error) {
	info, err := os.Stat(l.GetPath(rel))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	return info.Mode().IsRegular(), nil
}

// Create opens rel for writing through a temporary file that is renamed into
// place by Close. Abort, or a failed Close, leaves nothing at rel.
func (l *LocalStorage) Create(rel string) (domain.ArchiveWriter, error) {
	finalPath := l.GetPath(rel)
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", tmpPath, err)
	}

	return &archiveWriter{f: f, tmpPath: tmpPath, finalPath: finalPath}, nil
}

type archiveWriter struct {
	f         *os.File
	tmpPath   string
	finalPath string
	done      bool
}

func (w *archiveWriter) Write(p []byte) (int, error) { return w.f.Write(p) }

func (w *archiveWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true

	if err := w.f.Close(); err != nil {
		_ = os.Remove(w.tmpPath)
		return fmt.Errorf("failed to close %s: %w", w.tmpPath, err)
	}
	if err := os.Rename(w.tmpPath, w.finalPath); err != nil {
		_ = os.Remove(w.tmpPath)
		return fmt.Errorf("failed to move archive into place: %w", err)
	}
	return nil
}

func (w *archiveWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true

	_ = w.f.Close()
	if err := os.Remove(w.tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", w.tmpPath, err)
	}
	return nil
}
