package storage

import (
	"context"
	"io"
	"path"

	"github.com/TheMichaelB/sharegate/internal/models"
)

// Share is a remote file tree addressed by slash-separated paths that are
// absolute within the share.
type Share interface {
	// Scheme names the address scheme, e.g. "smb".
	Scheme() string

	// Stat returns entry metadata. Missing entries wrap os.ErrNotExist.
	Stat(ctx context.Context, p string) (models.FileInfo, error)

	// Exists checks if an entry exists.
	Exists(ctx context.Context, p string) (bool, error)

	// OpenRead opens a file for streaming reads.
	OpenRead(ctx context.Context, p string) (io.ReadCloser, error)

	// OpenWrite creates or truncates a file for streaming writes.
	OpenWrite(ctx context.Context, p string) (io.WriteCloser, error)

	// ListDir returns the direct children of a directory.
	ListDir(ctx context.Context, p string) ([]models.FileInfo, error)

	// Mkdir creates one directory. An existing entry wraps os.ErrExist.
	Mkdir(ctx context.Context, p string) error

	// MkdirAll creates a directory and any missing parents.
	MkdirAll(ctx context.Context, p string) error

	// Delete removes a file or an empty directory.
	Delete(ctx context.Context, p string) error

	// Rename moves an entry, replacing an existing destination file.
	Rename(ctx context.Context, oldPath, newPath string) error

	// Close releases backend resources.
	Close() error
}

// Clean normalizes p to an absolute slash path.
func Clean(p string) string {
	return path.Clean("/" + p)
}
