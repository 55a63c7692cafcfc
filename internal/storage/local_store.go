package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/TheMichaelB/sharegate/internal/events"
	"github.com/TheMichaelB/sharegate/internal/models"
)

// LocalStore serves a share mounted on the local filesystem, such as a
// CIFS mount or a plain directory.
type LocalStore struct {
	baseDir string
	scheme  string
	logger  *events.Logger

	// Security settings
	allowSymlinks bool
	maxPathLength int
}

// NewLocalStore creates a store rooted at baseDir, which must exist.
// Symlinks in baseDir itself are resolved.
func NewLocalStore(baseDir string, logger *events.Logger) (*LocalStore, error) {
	absPath, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}

	// A mount point reached through a symlink is served as its target, so
	// the share root stats as a directory.
	absPath, err = filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, fmt.Errorf("open base directory: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("open base directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base directory %s is not a directory", absPath)
	}

	return &LocalStore{
		baseDir:       absPath,
		scheme:        "file",
		logger:        logger.WithField("component", "local_store"),
		allowSymlinks: false,
		maxPathLength: 1024,
	}, nil
}

// SetScheme overrides the scheme reported in addresses, e.g. "smb" for a
// mounted share.
func (s *LocalStore) SetScheme(scheme string) {
	s.scheme = scheme
}

// SetMaxPathLength sets the limit on resolved path length.
func (s *LocalStore) SetMaxPathLength(n int) {
	s.maxPathLength = n
}

// BaseDir returns the absolute directory the share is mounted at.
func (s *LocalStore) BaseDir() string {
	return s.baseDir
}

// Scheme implements Share.
func (s *LocalStore) Scheme() string {
	return s.scheme
}

// Stat returns entry metadata.
func (s *LocalStore) Stat(_ context.Context, p string) (models.FileInfo, error) {
	safePath, err := s.sanitizePath(p)
	if err != nil {
		return models.FileInfo{}, err
	}

	stat, err := os.Lstat(safePath)
	if err != nil {
		return models.FileInfo{}, fmt.Errorf("stat file: %w", err)
	}

	return toFileInfo(Clean(p), stat), nil
}

// Exists checks if an entry exists.
func (s *LocalStore) Exists(ctx context.Context, p string) (bool, error) {
	_, err := s.Stat(ctx, p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// OpenRead opens a file for reading.
func (s *LocalStore) OpenRead(_ context.Context, p string) (io.ReadCloser, error) {
	safePath, err := s.sanitizePath(p)
	if err != nil {
		return nil, err
	}

	if !s.allowSymlinks {
		stat, err := os.Lstat(safePath)
		if err == nil && stat.Mode()&os.ModeSymlink != 0 {
			return nil, fmt.Errorf("symlinks not allowed: %s", p)
		}
	}

	file, err := os.Open(safePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	info, err := file.Stat()
	if err == nil && info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("open file: %s is a directory", p)
	}

	return file, nil
}

// OpenWrite creates or truncates a file. The parent directory must exist.
func (s *LocalStore) OpenWrite(_ context.Context, p string) (io.WriteCloser, error) {
	safePath, err := s.sanitizePath(p)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("path", p).Debug("Opening file for write")

	file, err := os.OpenFile(safePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	return &syncFile{File: file}, nil
}

// ListDir returns directory contents.
func (s *LocalStore) ListDir(_ context.Context, p string) ([]models.FileInfo, error) {
	safePath, err := s.sanitizePath(p)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(safePath)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	dir := Clean(p)
	files := make([]models.FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, toFileInfo(joinPath(dir, entry.Name()), info))
	}

	return files, nil
}

// Mkdir creates a single directory.
func (s *LocalStore) Mkdir(_ context.Context, p string) error {
	safePath, err := s.sanitizePath(p)
	if err != nil {
		return err
	}

	s.logger.WithField("path", p).Debug("Creating directory")

	if err := os.Mkdir(safePath, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return nil
}

// MkdirAll creates a directory and its parents.
func (s *LocalStore) MkdirAll(_ context.Context, p string) error {
	safePath, err := s.sanitizePath(p)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(safePath, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return nil
}

// Delete removes a file or empty directory.
func (s *LocalStore) Delete(_ context.Context, p string) error {
	safePath, err := s.sanitizePath(p)
	if err != nil {
		return err
	}
	if safePath == s.baseDir {
		return fmt.Errorf("delete file: refusing to remove share root")
	}

	s.logger.WithField("path", p).Debug("Deleting file")

	if err := os.Remove(safePath); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// Rename moves a file or directory.
func (s *LocalStore) Rename(_ context.Context, oldPath, newPath string) error {
	oldSafe, err := s.sanitizePath(oldPath)
	if err != nil {
		return fmt.Errorf("sanitize old path: %w", err)
	}

	newSafe, err := s.sanitizePath(newPath)
	if err != nil {
		return fmt.Errorf("sanitize new path: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"old": oldPath,
		"new": newPath,
	}).Debug("Moving file")

	if err := os.Rename(oldSafe, newSafe); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

// Close implements Share.
func (s *LocalStore) Close() error {
	return nil
}

// sanitizePath validates a share path and maps it below the base directory.
func (s *LocalStore) sanitizePath(p string) (string, error) {
	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("invalid path: contains null bytes")
	}

	cleaned := strings.TrimPrefix(Clean(filepath.ToSlash(p)), "/")
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(cleaned))

	if !strings.HasPrefix(fullPath, s.baseDir+string(filepath.Separator)) && fullPath != s.baseDir {
		return "", fmt.Errorf("invalid path: escapes base directory")
	}

	if len(fullPath) > s.maxPathLength {
		return "", fmt.Errorf("invalid path: too long: %d characters (max: %d)", len(fullPath), s.maxPathLength)
	}

	if err := validateShareName(cleaned); err != nil {
		return "", err
	}

	return fullPath, nil
}

// validateShareName rejects names an SMB server would refuse.
func validateShareName(p string) error {
	reserved := []string{"CON", "PRN", "AUX", "NUL", "COM1", "COM2", "COM3", "COM4",
		"COM5", "COM6", "COM7", "COM8", "COM9", "LPT1", "LPT2", "LPT3",
		"LPT4", "LPT5", "LPT6", "LPT7", "LPT8", "LPT9"}

	if p == "" {
		return nil
	}

	for _, part := range strings.Split(p, "/") {
		upperName := strings.ToUpper(strings.TrimSuffix(part, filepath.Ext(part)))
		for _, r := range reserved {
			if upperName == r {
				return fmt.Errorf("invalid path: contains reserved name '%s'", part)
			}
		}

		for _, char := range `<>:"|?*\` {
			if strings.ContainsRune(part, char) {
				return fmt.Errorf("invalid path: contains character '%c'", char)
			}
		}
	}

	return nil
}

// syncFile flushes to disk before closing.
type syncFile struct {
	*os.File
}

func (f *syncFile) Close() error {
	if err := f.File.Sync(); err != nil {
		f.File.Close()
		return fmt.Errorf("sync file: %w", err)
	}
	return f.File.Close()
}

func toFileInfo(p string, stat os.FileInfo) models.FileInfo {
	return models.FileInfo{
		Name:    stat.Name(),
		Path:    p,
		Size:    stat.Size(),
		Mode:    stat.Mode(),
		ModTime: stat.ModTime(),
		IsDir:   stat.IsDir(),
	}
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
