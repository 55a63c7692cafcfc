package models

import (
	"os"
	"time"
)

// FileInfo describes an entry on a share backend.
type FileInfo struct {
	Name    string
	Path    string
	Size    int64
	Mode    os.FileMode
	ModTime time.Time
	IsDir   bool
}

// IsRegular reports whether the entry is a plain file.
func (fi FileInfo) IsRegular() bool {
	return !fi.IsDir && fi.Mode&os.ModeType == 0
}
