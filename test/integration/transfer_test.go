//go:build integration
// +build integration

package integration_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/sharegate/internal/metrics"
	"github.com/TheMichaelB/sharegate/internal/models"
	"github.com/TheMichaelB/sharegate/internal/state"
	"github.com/TheMichaelB/sharegate/internal/storage"
	"github.com/TheMichaelB/sharegate/internal/transfer"
	"github.com/TheMichaelB/sharegate/test/testutil"
)

func TestRepositoryLifecycle(t *testing.T) {
	testutil.SkipIfShort(t, "exercises the full stack on disk")

	helpers := testutil.NewTestHelpers(t)
	mount := filepath.Join(helpers.TempDir(), "mount")
	require.NoError(t, os.MkdirAll(mount, 0755))

	cfg := testutil.TestConfigWithDir(filepath.Join(helpers.TempDir(), "data"), mount)
	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.EnsureDirectories())

	ctx, cancel := testutil.TestContext()
	defer cancel()

	logs := testutil.NewLogOutput()
	logger := logs.Logger()

	settings, err := cfg.Settings()
	require.NoError(t, err)

	share, err := storage.Open(ctx, cfg, settings, logger)
	require.NoError(t, err)
	defer share.Close()

	journal, err := state.Open(cfg.Journal, logger)
	require.NoError(t, err)
	defer journal.Close()

	collector := metrics.New()
	m := transfer.New(settings, share, logger,
		transfer.WithMetrics(collector),
		transfer.WithJournal(journal),
	)
	assert.Equal(t, "smb://nas.test/repos/team/repo", m.RootAddress())

	// Not there yet.
	assert.False(t, m.Probe(ctx).TargetExists)

	require.NoError(t, m.Init(ctx, true))
	for _, folder := range models.LayoutFolders() {
		assert.DirExists(t, filepath.Join(mount, "team", "repo", folder))
	}

	repo := helpers.CreateTempFile("syncany", "repo v1")
	require.NoError(t, m.Upload(ctx, repo, models.RepoFile()))

	report := m.Probe(ctx)
	assert.True(t, report.TargetExists)
	assert.True(t, report.TargetCanWrite)
	assert.True(t, report.TargetCanCreate)
	assert.True(t, report.RepoFileExists)

	chunk, err := models.NewMultichunkFile("0a1b2c")
	require.NoError(t, err)
	src := helpers.CreateTempFile("chunk.bin", "chunk payload")
	require.NoError(t, m.Upload(ctx, src, chunk))

	files, err := m.List(ctx, models.CategoryMultichunk)
	require.NoError(t, err)
	assert.Contains(t, files, chunk.Name())

	dest := filepath.Join(helpers.TempDir(), "out", "chunk.bin")
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0755))
	require.NoError(t, m.Download(ctx, chunk, dest))
	helpers.AssertFileContent(dest, "chunk payload")

	parked := models.UncheckedRemoteFile(models.CategoryTemp, "temp-"+chunk.Name())
	require.NoError(t, m.Move(ctx, chunk, parked))

	files, err = m.List(ctx, models.CategoryMultichunk)
	require.NoError(t, err)
	assert.Empty(t, files)

	ok, err := m.Delete(ctx, parked)
	require.NoError(t, err)
	assert.True(t, ok)
	helpers.AssertFileNotExists(filepath.Join(mount, "team", "repo", "temporary", parked.Name()))

	records, err := journal.Recent(0)
	require.NoError(t, err)
	ops := make([]models.Operation, 0, len(records))
	for _, rec := range records {
		ops = append(ops, rec.Op)
		assert.True(t, rec.Succeeded(), "%s failed: %s", rec.Op, rec.Error)
	}
	assert.Equal(t, []models.Operation{
		models.OpDelete, models.OpMove, models.OpDownload,
		models.OpUpload, models.OpUpload, models.OpInit,
	}, ops)

	require.NoError(t, collector.WriteTextfile(cfg.Metrics.Textfile))
	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "sharegate_operations_total")

	assert.NotContains(t, logs.Raw(), "secret")
	assert.True(t, logs.HasLevel("info"))
}
