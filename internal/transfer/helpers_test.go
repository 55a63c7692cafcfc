package transfer_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/sharegate/internal/config"
	"github.com/TheMichaelB/sharegate/internal/events"
	"github.com/TheMichaelB/sharegate/internal/models"
	"github.com/TheMichaelB/sharegate/internal/storage"
	"github.com/TheMichaelB/sharegate/internal/transfer"
)

func testSettings(t *testing.T, root string) config.Settings {
	t.Helper()
	raw := map[string]string{
		"hostname": "nas.local",
		"username": "backup",
		"password": "secret",
		"share":    "repos",
	}
	if root != "" {
		raw["path"] = root
	}
	s, err := config.NewSettings(raw)
	require.NoError(t, err)
	return s
}

func newManager(t *testing.T, share storage.Share, opts ...transfer.Option) *transfer.Manager {
	t.Helper()
	return transfer.New(testSettings(t, "/repo"), share, events.Discard(), opts...)
}

// backends returns a fresh share of every testable kind.
func backends(t *testing.T) map[string]func() storage.Share {
	return map[string]func() storage.Share{
		"mock": func() storage.Share { return storage.NewMockStore() },
		"local": func() storage.Share {
			store, err := storage.NewLocalStore(t.TempDir(), events.Discard())
			require.NoError(t, err)
			return store
		},
	}
}

func writeLocal(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "src")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func mustFile(t *testing.T, c models.Category, name string) models.RemoteFile {
	t.Helper()
	rf, err := models.NewRemoteFile(c, name)
	require.NoError(t, err)
	return rf
}

// dirEntries lists the names in a local directory.
func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

type memJournal struct {
	mu      sync.Mutex
	records []models.TransferRecord
	err     error
}

func (j *memJournal) Append(rec *models.TransferRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.records = append(j.records, *rec)
	return nil
}
