package transfer

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/TheMichaelB/sharegate/internal/models"
)

// Probe file names. A random suffix keeps concurrent probes apart.
const (
	writeProbePrefix  = "syncany-write-test"
	folderProbePrefix = "syncany-folder-test"
)

// TargetExists reports whether the repository root is a directory.
func (m *Manager) TargetExists(ctx context.Context) bool {
	return m.isDir(ctx, m.rootPath, "target_exists")
}

// TargetCanWrite reports whether a file can be written to and deleted from
// the repository root.
func (m *Manager) TargetCanWrite(ctx context.Context) bool {
	if !m.TargetExists(ctx) {
		return false
	}

	p := path.Join(m.rootPath, probeName(writeProbePrefix))
	logger := m.logger.WithFields(map[string]interface{}{"probe": "target_can_write", "path": p})

	w, err := m.share.OpenWrite(ctx, p)
	if err != nil {
		logger.WithError(err).Debug("Probe file could not be created")
		return false
	}

	_, werr := io.Copy(w, strings.NewReader("test"))
	cerr := w.Close()
	if err := errors.Join(werr, cerr); err != nil {
		logger.WithError(err).Debug("Probe file could not be written")
		_ = m.share.Delete(ctx, p)
		return false
	}

	if err := m.share.Delete(ctx, p); err != nil {
		logger.WithError(err).Warn("Probe file could not be deleted")
		return false
	}
	return true
}

// TargetCanCreate reports whether the parent of the repository root
// accepts new folders, i.e. whether Init could create the root.
func (m *Manager) TargetCanCreate(ctx context.Context) bool {
	parent := path.Dir(m.rootPath)
	if !m.isDir(ctx, parent, "target_can_create") {
		return false
	}

	p := path.Join(parent, probeName(folderProbePrefix))
	logger := m.logger.WithFields(map[string]interface{}{"probe": "target_can_create", "path": p})

	if err := m.share.Mkdir(ctx, p); err != nil {
		logger.WithError(err).Debug("Probe folder could not be created")
		return false
	}
	if err := m.share.Delete(ctx, p); err != nil {
		logger.WithError(err).Warn("Probe folder could not be deleted")
		return false
	}
	return true
}

// RepoFileExists reports whether the repository identity file is present
// as a regular file.
func (m *Manager) RepoFileExists(ctx context.Context) bool {
	p, err := m.resolve("probe", models.RepoFile())
	if err != nil {
		return false
	}

	info, err := m.share.Stat(ctx, p)
	if err != nil {
		m.logProbeError("repo_file_exists", p, err)
		return false
	}
	return info.IsRegular()
}

// Probe runs every readiness check.
func (m *Manager) Probe(ctx context.Context) models.ProbeReport {
	return models.ProbeReport{
		TargetExists:    m.TargetExists(ctx),
		TargetCanWrite:  m.TargetCanWrite(ctx),
		TargetCanCreate: m.TargetCanCreate(ctx),
		RepoFileExists:  m.RepoFileExists(ctx),
	}
}

func (m *Manager) isDir(ctx context.Context, p, probe string) bool {
	info, err := m.share.Stat(ctx, p)
	if err != nil {
		m.logProbeError(probe, p, err)
		return false
	}
	return info.IsDir
}

func (m *Manager) logProbeError(probe, p string, err error) {
	logger := m.logger.WithFields(map[string]interface{}{"probe": probe, "path": p})
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("Probe target does not exist")
		return
	}
	logger.WithError(err).Warn("Probe failed")
}

func probeName(prefix string) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return prefix + "-" + hex.EncodeToString(b)
}
