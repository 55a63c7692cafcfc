package testutil

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/sharegate/internal/config"
	"github.com/TheMichaelB/sharegate/internal/events"
)

// LogEntry represents a captured log entry for testing
type LogEntry struct {
	Level   string                 `json:"level"`
	Message string                 `json:"msg"`
	Time    time.Time              `json:"time"`
	Fields  map[string]interface{} `json:"-"`
}

// TestHelpers provides common test utilities.
type TestHelpers struct {
	t       testing.TB
	tempDir string
}

// NewTestHelpers creates test helpers.
func NewTestHelpers(t testing.TB) *TestHelpers {
	return &TestHelpers{
		t:       t,
		tempDir: t.TempDir(),
	}
}

// TempDir returns the temporary directory for this test.
func (h *TestHelpers) TempDir() string {
	return h.tempDir
}

// CreateTempFile creates a temporary file with content.
func (h *TestHelpers) CreateTempFile(name, content string) string {
	return h.CreateTempBinaryFile(name, []byte(content))
}

// CreateTempBinaryFile creates a temporary binary file.
func (h *TestHelpers) CreateTempBinaryFile(name string, content []byte) string {
	path := filepath.Join(h.tempDir, name)

	err := os.MkdirAll(filepath.Dir(path), 0755)
	require.NoError(h.t, err)

	err = os.WriteFile(path, content, 0644)
	require.NoError(h.t, err)

	return path
}

// AssertFileContent checks file content matches expected.
func (h *TestHelpers) AssertFileContent(path, expectedContent string) {
	content, err := os.ReadFile(path)
	require.NoError(h.t, err)
	assert.Equal(h.t, expectedContent, string(content))
}

// AssertFileNotExists checks that a file does not exist.
func (h *TestHelpers) AssertFileNotExists(path string) {
	_, err := os.Stat(path)
	assert.True(h.t, os.IsNotExist(err), "File should not exist: %s", path)
}

// TestContext creates a test context with reasonable timeout.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// TestConfigWithDir creates a configuration serving the share from a
// local directory, with journal and metrics under dataDir.
func TestConfigWithDir(dataDir, mountPath string) *config.Config {
	cfg := config.DefaultConfig()

	cfg.Share = config.ShareConfig{
		Hostname: "nas.test",
		Username: "backup",
		Password: "secret",
		Share:    "repos",
		Path:     "/team/repo",
	}
	cfg.Backend.Type = config.BackendLocal
	cfg.Backend.MountPath = mountPath
	cfg.Storage.DataDir = dataDir
	cfg.Journal.Path = filepath.Join(dataDir, "journal.db")
	cfg.Metrics.Textfile = filepath.Join(dataDir, "sharegate.prom")
	cfg.Log = config.LogConfig{Level: "debug", Format: "json"}

	return cfg
}

// LogOutput captures JSON log lines.
type LogOutput struct {
	mu      sync.RWMutex
	entries []LogEntry
}

// NewLogOutput creates a new log output capturer.
func NewLogOutput() *LogOutput {
	return &LogOutput{}
}

// Logger returns a debug logger writing to lo.
func (lo *LogOutput) Logger() *events.Logger {
	return events.NewTestLogger(events.DebugLevel, "json", lo)
}

// Write implements io.Writer to capture log output.
func (lo *LogOutput) Write(p []byte) (n int, err error) {
	var entry LogEntry
	if err := json.Unmarshal(p, &entry); err == nil {
		_ = json.Unmarshal(p, &entry.Fields)
		lo.mu.Lock()
		lo.entries = append(lo.entries, entry)
		lo.mu.Unlock()
	}
	return len(p), nil
}

// Entries returns captured log entries.
func (lo *LogOutput) Entries() []LogEntry {
	lo.mu.RLock()
	defer lo.mu.RUnlock()

	entries := make([]LogEntry, len(lo.entries))
	copy(entries, lo.entries)
	return entries
}

// HasLevel checks if any log entry has the specified level.
func (lo *LogOutput) HasLevel(level string) bool {
	for _, entry := range lo.Entries() {
		if entry.Level == level {
			return true
		}
	}
	return false
}

// HasMessage checks if any log entry contains the message.
func (lo *LogOutput) HasMessage(message string) bool {
	for _, entry := range lo.Entries() {
		if strings.Contains(entry.Message, message) {
			return true
		}
	}
	return false
}

// Raw returns every captured line joined, for substring checks.
func (lo *LogOutput) Raw() string {
	var sb strings.Builder
	for _, entry := range lo.Entries() {
		data, _ := json.Marshal(entry.Fields)
		sb.Write(data)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// SkipIfShort skips test if testing.Short() is true.
func SkipIfShort(t *testing.T, reason string) {
	if testing.Short() {
		t.Skipf("Skipping test in short mode: %s", reason)
	}
}
