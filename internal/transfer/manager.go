// Package transfer implements the typed file gateway on top of a
// storage.Share: repository layout, category routed transfers, and
// readiness probes.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/TheMichaelB/sharegate/internal/config"
	"github.com/TheMichaelB/sharegate/internal/events"
	"github.com/TheMichaelB/sharegate/internal/metrics"
	"github.com/TheMichaelB/sharegate/internal/models"
	"github.com/TheMichaelB/sharegate/internal/storage"
)

// Journal receives a record for every finished transfer.
type Journal interface {
	Append(rec *models.TransferRecord) error
}

// Manager runs gateway operations against one repository on one share.
// Its fields are fixed at construction, so a Manager may be shared by
// concurrent callers.
type Manager struct {
	settings config.Settings
	share    storage.Share
	logger   *events.Logger
	metrics  *metrics.Collector
	journal  Journal
	tempDir  string

	baseAddress string
	rootAddress string
	rootPath    string
	folders     map[models.Category]string
}

// Option configures a Manager.
type Option func(*Manager)

// WithMetrics records operation metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Manager) { m.metrics = c }
}

// WithJournal appends a record per transfer to j.
func WithJournal(j Journal) Option {
	return func(m *Manager) { m.journal = j }
}

// WithTempDir places download temp files in dir instead of next to the
// destination. dir must be on the same filesystem as the destinations.
func WithTempDir(dir string) Option {
	return func(m *Manager) { m.tempDir = dir }
}

// New creates a manager for the repository described by settings.
func New(settings config.Settings, share storage.Share, logger *events.Logger, opts ...Option) *Manager {
	rootPath := storage.Clean(settings.Path())
	baseAddress := fmt.Sprintf("%s://%s/%s", share.Scheme(), settings.Hostname(), strings.Trim(settings.Share(), "/"))

	m := &Manager{
		settings:    settings,
		share:       share,
		baseAddress: baseAddress,
		rootAddress: baseAddress + rootPath,
		rootPath:    rootPath,
		folders:     make(map[models.Category]string, len(models.Categories)),
	}

	for _, c := range models.Categories {
		m.folders[c] = path.Join(rootPath, models.FolderFor(c))
	}

	for _, opt := range opts {
		opt(m)
	}

	m.logger = logger.WithFields(map[string]interface{}{
		"component": "transfer",
		"root":      m.rootAddress,
	})

	return m
}

// RootAddress returns the repository root as a URL.
func (m *Manager) RootAddress() string {
	return m.rootAddress
}

// RootPath returns the repository root within the share.
func (m *Manager) RootPath() string {
	return m.rootPath
}

// Connect checks that the repository root can be queried. A missing root
// is not an error; Init creates it.
func (m *Manager) Connect(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		m.metrics.ObserveOperation(string(models.OpConnect), err, time.Since(start))
	}()

	u, err := url.Parse(m.rootAddress)
	if err != nil {
		return models.NewStorageError(models.ErrConnection, "connect", m.rootAddress, err)
	}
	if u.Host == "" {
		return models.NewStorageError(models.ErrConnection, "connect", m.rootAddress, fmt.Errorf("address has no host"))
	}

	exists, err := m.share.Exists(ctx, m.rootPath)
	if err != nil {
		return models.NewStorageError(models.ErrConnection, "connect", m.rootAddress, err)
	}

	m.logger.WithField("root_exists", exists).Debug("Connected")
	return nil
}

// Disconnect releases nothing; the backend session belongs to the Share.
func (m *Manager) Disconnect() error {
	m.logger.Debug("Disconnected")
	return nil
}

// Init creates the category folders, and the root first when
// createIfMissing is set. Existing folders are left alone.
func (m *Manager) Init(ctx context.Context, createIfMissing bool) error {
	start := time.Now()

	err := m.withConnection(ctx, func() error {
		if createIfMissing && !m.TargetExists(ctx) {
			m.logger.Info("Creating repository root")
			if err := m.share.MkdirAll(ctx, m.rootPath); err != nil {
				return models.NewStorageError(models.ErrInit, "init", m.rootAddress, err)
			}
		}

		for _, folder := range models.LayoutFolders() {
			p := path.Join(m.rootPath, folder)
			err := m.share.Mkdir(ctx, p)
			if err != nil && !isExist(err) {
				return models.NewStorageError(models.ErrInit, "init", m.address(p), err)
			}
		}
		return nil
	})

	m.finish(models.OpInit, models.TransferRecord{Target: m.rootAddress}, err, start)
	return err
}

// withConnection connects, runs fn, and disconnects on every path.
func (m *Manager) withConnection(ctx context.Context, fn func() error) error {
	defer m.Disconnect()

	if err := m.Connect(ctx); err != nil {
		return err
	}
	return fn()
}

// finish logs the outcome, records metrics and appends to the journal.
func (m *Manager) finish(op models.Operation, rec models.TransferRecord, err error, start time.Time) {
	elapsed := time.Since(start)
	m.metrics.ObserveOperation(string(op), err, elapsed)

	logger := m.logger.WithFields(map[string]interface{}{
		"op":          string(op),
		"duration_ms": elapsed.Milliseconds(),
	})
	if rec.Name != "" {
		logger = logger.WithField("file", rec.Name)
	}

	if err != nil {
		logger.WithError(err).Warn("Operation failed")
	} else if op == models.OpList {
		logger.Debug("Operation completed")
	} else {
		logger.WithField("bytes", rec.Bytes).Info("Operation completed")
	}

	if m.journal == nil || op == models.OpList {
		return
	}

	rec.Time = start.UTC()
	rec.Op = op
	if err != nil {
		rec.Error = err.Error()
	}
	if jerr := m.journal.Append(&rec); jerr != nil {
		m.logger.WithError(jerr).Warn("Failed to append journal record")
	}
}

func isExist(err error) bool {
	return errors.Is(err, fs.ErrExist)
}
