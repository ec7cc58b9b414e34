package domain

import (
	"context"
	"io"
	"time"
)

// Storage is a remote upload target mirroring local archives.
type Storage interface {
	Upload(ctx context.Context, localPath string, remoteName string) error
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, remoteName string) error
	GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error)
}

// ArchiveWriter is committed by Close and thrown away by Abort.
type ArchiveWriter interface {
	io.WriteCloser
	Abort() error
}

// ArchiveStore is the local output tree. The existence of an archive is the
// only record that a daily partition is done.
type ArchiveStore interface {
	EnsureDir(rel string) error
	Exists(rel string) (bool, error)
	Create(rel string) (ArchiveWriter, error)
	GetPath(rel string) string
}
