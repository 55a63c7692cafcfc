package transfer

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/TheMichaelB/sharegate/internal/metrics"
	"github.com/TheMichaelB/sharegate/internal/models"
)

// Download copies rf into dest through a local temp file, so dest is
// either replaced whole or left as it was. A name of "." is a no-op.
func (m *Manager) Download(ctx context.Context, rf models.RemoteFile, dest string) (err error) {
	if rf.Name() == "." {
		return nil
	}

	start := time.Now()
	rec := models.TransferRecord{Category: rf.Category(), Name: rf.Name(), Target: dest}
	defer func() { m.finish(models.OpDownload, rec, err, start) }()

	remotePath, err := m.resolve("download", rf)
	if err != nil {
		return err
	}
	addr := m.address(remotePath)

	r, err := m.share.OpenRead(ctx, remotePath)
	if err != nil {
		return models.NewStorageError(models.ErrNotFound, "download", addr, err)
	}
	defer r.Close()

	dir := m.tempDir
	if dir == "" {
		dir = filepath.Dir(dest)
	}

	tmp, err := os.CreateTemp(dir, ".sharegate-*.tmp")
	if err != nil {
		return models.NewStorageError(models.ErrIO, "download", dest, err)
	}
	tmpPath := tmp.Name()

	promoted := false
	defer func() {
		if !promoted {
			_ = os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return models.NewStorageError(models.ErrNotFound, "download", addr, err)
	}
	if err := tmp.Close(); err != nil {
		return models.NewStorageError(models.ErrIO, "download", tmpPath, err)
	}

	if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return models.NewStorageError(models.ErrIO, "download", dest, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return models.NewStorageError(models.ErrIO, "download", dest, err)
	}
	promoted = true

	rec.Bytes = n
	m.metrics.AddBytes(metrics.DirectionDownload, n)
	return nil
}

// Upload streams src into a temp object at the repository root and renames
// it into place, so the final name only appears once the content is
// complete.
func (m *Manager) Upload(ctx context.Context, src string, rf models.RemoteFile) (err error) {
	start := time.Now()
	rec := models.TransferRecord{Category: rf.Category(), Name: rf.Name(), Target: src}
	defer func() { m.finish(models.OpUpload, rec, err, start) }()

	finalPath, err := m.resolve("upload", rf)
	if err != nil {
		return err
	}
	tempPath, err := m.resolve("upload", tempUploadFile(rf))
	if err != nil {
		return err
	}

	f, err := os.Open(src)
	if err != nil {
		return models.NewStorageError(models.ErrIO, "upload", src, err)
	}
	defer f.Close()

	w, err := m.share.OpenWrite(ctx, tempPath)
	if err != nil {
		return models.NewStorageError(models.ErrIO, "upload", m.address(tempPath), err)
	}

	n, err := io.Copy(w, f)
	if err != nil {
		w.Close()
		m.removeTemp(ctx, tempPath)
		return models.NewStorageError(models.ErrIO, "upload", m.address(tempPath), err)
	}
	if err := w.Close(); err != nil {
		m.removeTemp(ctx, tempPath)
		return models.NewStorageError(models.ErrIO, "upload", m.address(tempPath), err)
	}

	if err := m.share.Rename(ctx, tempPath, finalPath); err != nil {
		m.removeTemp(ctx, tempPath)
		return models.NewStorageError(models.ErrIO, "upload", m.address(finalPath), err)
	}

	rec.Bytes = n
	m.metrics.AddBytes(metrics.DirectionUpload, n)
	return nil
}

// Delete removes rf. Whether deleting a missing file fails is up to the
// backend.
func (m *Manager) Delete(ctx context.Context, rf models.RemoteFile) (ok bool, err error) {
	start := time.Now()
	rec := models.TransferRecord{Category: rf.Category(), Name: rf.Name()}
	defer func() { m.finish(models.OpDelete, rec, err, start) }()

	p, err := m.resolve("delete", rf)
	if err != nil {
		return false, err
	}

	if err := m.share.Delete(ctx, p); err != nil {
		return false, models.NewStorageError(models.ErrIO, "delete", m.address(p), err)
	}
	return true, nil
}

// Move renames src to dst with a single backend rename.
func (m *Manager) Move(ctx context.Context, src, dst models.RemoteFile) (err error) {
	start := time.Now()
	rec := models.TransferRecord{Category: src.Category(), Name: src.Name(), Target: dst.String()}
	defer func() { m.finish(models.OpMove, rec, err, start) }()

	srcPath, err := m.resolve("move", src)
	if err != nil {
		return err
	}
	dstPath, err := m.resolve("move", dst)
	if err != nil {
		return err
	}

	if err := m.share.Rename(ctx, srcPath, dstPath); err != nil {
		return models.NewStorageError(models.ErrMove, "move", m.address(srcPath), err)
	}
	return nil
}

// List returns the files in the category folder keyed by name. Directories
// and names that do not fit the category are skipped.
func (m *Manager) List(ctx context.Context, c models.Category) (files map[string]models.RemoteFile, err error) {
	start := time.Now()
	rec := models.TransferRecord{Category: c}
	defer func() { m.finish(models.OpList, rec, err, start) }()

	folder := m.folderPath(c)
	entries, err := m.share.ListDir(ctx, folder)
	if err != nil {
		return nil, models.NewStorageError(models.ErrIO, "list", m.address(folder), err)
	}

	files = make(map[string]models.RemoteFile, len(entries))
	for _, entry := range entries {
		if entry.IsDir {
			continue
		}

		rf, err := models.NewRemoteFile(c, entry.Name)
		if err != nil {
			m.logger.WithFields(map[string]interface{}{
				"category": string(c),
				"name":     entry.Name,
			}).Debug("Skipping entry that does not match category")
			continue
		}
		files[entry.Name] = rf
	}

	return files, nil
}

// removeTemp deletes a staged upload object, logging failures.
func (m *Manager) removeTemp(ctx context.Context, p string) {
	if err := m.share.Delete(ctx, p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		m.logger.WithError(err).WithField("path", p).Warn("Failed to remove temp object")
	}
}
