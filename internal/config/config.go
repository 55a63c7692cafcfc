package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Backend kinds accepted in backend.type.
const (
	BackendSMB    = "smb"
	BackendLocal  = "local"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	// Share connection settings, validated by Settings()
	Share ShareConfig `json:"share" mapstructure:"share"`

	// Backend selection and backend-specific options
	Backend BackendConfig `json:"backend" mapstructure:"backend"`

	// Local paths
	Storage StorageConfig `json:"storage" mapstructure:"storage"`

	// Logging
	Log LogConfig `json:"log" mapstructure:"log"`

	// Transfer journal
	Journal JournalConfig `json:"journal" mapstructure:"journal"`

	// Metrics export
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`
}

// ShareConfig is the raw form of Settings.
type ShareConfig struct {
	Hostname string `json:"hostname" mapstructure:"hostname"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password,omitempty" mapstructure:"password"`
	Share    string `json:"share" mapstructure:"share"`
	Path     string `json:"path" mapstructure:"path"`
	Domain   string `json:"domain,omitempty" mapstructure:"domain"`
}

// BackendConfig selects and tunes the share client.
type BackendConfig struct {
	Type string `json:"type" mapstructure:"type"` // smb, local, s3, memory

	// smb
	Port int `json:"port" mapstructure:"port"`

	// local: where the share is mounted
	MountPath string `json:"mount_path" mapstructure:"mount_path"`

	// s3: hostname/share become endpoint/bucket unless set here
	Bucket   string `json:"bucket" mapstructure:"bucket"`
	Region   string `json:"region" mapstructure:"region"`
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
}

// StorageConfig for local file paths.
type StorageConfig struct {
	DataDir string `json:"data_dir" mapstructure:"data_dir"` // Base directory for local data
	TempDir string `json:"temp_dir" mapstructure:"temp_dir"` // Download staging; empty = next to destination
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `json:"format" mapstructure:"format"` // text, json
	File   string `json:"file" mapstructure:"file"`     // Log file path (empty = stderr)
	Color  bool   `json:"color" mapstructure:"color"`   // Colour level names on terminals
}

// JournalConfig for the local transfer journal.
type JournalConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Driver  string `json:"driver" mapstructure:"driver"` // sqlite, json
	Path    string `json:"path" mapstructure:"path"`
}

// MetricsConfig for Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `json:"textfile" mapstructure:"textfile"` // empty = disabled
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	dataDir := ".sharegate"

	return &Config{
		Share: ShareConfig{
			Path: DefaultRootPath,
		},
		Backend: BackendConfig{
			Type: BackendSMB,
			Port: 445,
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Color:  true,
		},
		Journal: JournalConfig{
			Enabled: true,
			Driver:  "sqlite",
			Path:    filepath.Join(dataDir, "journal.db"),
		},
	}
}

// Validate checks configuration validity. Share settings are validated
// separately by Settings so that every missing key is reported at once.
func (c *Config) Validate() error {
	validBackends := map[string]bool{
		BackendSMB: true, BackendLocal: true, BackendS3: true, BackendMemory: true,
	}
	if !validBackends[c.Backend.Type] {
		return fmt.Errorf("invalid backend type: %s", c.Backend.Type)
	}

	if c.Backend.Type == BackendLocal && c.Backend.MountPath == "" {
		return errors.New("backend.mount_path is required for the local backend")
	}

	if c.Backend.Type == BackendSMB && (c.Backend.Port <= 0 || c.Backend.Port > 65535) {
		return fmt.Errorf("invalid backend port: %d", c.Backend.Port)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	if c.Journal.Enabled {
		validDrivers := map[string]bool{"sqlite": true, "json": true}
		if !validDrivers[c.Journal.Driver] {
			return fmt.Errorf("invalid journal driver: %s", c.Journal.Driver)
		}
		if c.Journal.Path == "" {
			return errors.New("journal.path is required when the journal is enabled")
		}
	}

	return nil
}

// Settings validates the share section.
func (c *Config) Settings() (Settings, error) {
	return NewSettings(map[string]string{
		KeyHostname: c.Share.Hostname,
		KeyUsername: c.Share.Username,
		KeyPassword: c.Share.Password,
		KeyShare:    c.Share.Share,
		KeyPath:     c.Share.Path,
	})
}

// EnsureDirectories creates required local directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Storage.DataDir}

	if c.Storage.TempDir != "" {
		dirs = append(dirs, c.Storage.TempDir)
	}
	if c.Journal.Enabled {
		dirs = append(dirs, filepath.Dir(c.Journal.Path))
	}
	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}
	if c.Metrics.Textfile != "" {
		dirs = append(dirs, filepath.Dir(c.Metrics.Textfile))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
