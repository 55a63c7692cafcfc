package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/sharegate/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, config.BackendSMB, cfg.Backend.Type)
	assert.Equal(t, 445, cfg.Backend.Port)
	assert.Equal(t, "/", cfg.Share.Path)
	assert.NotEmpty(t, cfg.Storage.DataDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*config.Config)
		wantErr string
	}{
		{
			name:    "valid config",
			modify:  func(c *config.Config) {},
			wantErr: "",
		},
		{
			name: "unknown backend",
			modify: func(c *config.Config) {
				c.Backend.Type = "nfs"
			},
			wantErr: "invalid backend type",
		},
		{
			name: "local backend without mount path",
			modify: func(c *config.Config) {
				c.Backend.Type = config.BackendLocal
			},
			wantErr: "backend.mount_path is required",
		},
		{
			name: "port out of range",
			modify: func(c *config.Config) {
				c.Backend.Port = 70000
			},
			wantErr: "invalid backend port",
		},
		{
			name: "invalid log level",
			modify: func(c *config.Config) {
				c.Log.Level = "invalid"
			},
			wantErr: "invalid log level",
		},
		{
			name: "invalid journal driver",
			modify: func(c *config.Config) {
				c.Journal.Driver = "bolt"
			},
			wantErr: "invalid journal driver",
		},
		{
			name: "disabled journal ignores driver",
			modify: func(c *config.Config) {
				c.Journal.Enabled = false
				c.Journal.Driver = ""
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoaderEnv(t *testing.T) {
	t.Setenv("SHAREGATE_SHARE_HOSTNAME", "nas.local")
	t.Setenv("SHAREGATE_SHARE_PASSWORD", "s3cret")
	t.Setenv("SHAREGATE_BACKEND_PORT", "1445")
	t.Setenv("SHAREGATE_LOG_LEVEL", "DEBUG")
	t.Setenv("SHAREGATE_JOURNAL_ENABLED", "false")

	loader := config.NewLoader("")
	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, "nas.local", cfg.Share.Hostname)
	assert.Equal(t, "s3cret", cfg.Share.Password)
	assert.Equal(t, 1445, cfg.Backend.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Journal.Enabled)
	assert.Equal(t, "/", cfg.Share.Path)
}

func TestLoaderFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sharegate.json")

	configJSON := `{
		"share": {
			"hostname": "fileserver",
			"username": "backup",
			"share": "repos",
			"path": "/team/repo"
		},
		"backend": {
			"type": "local",
			"mount_path": "/mnt/repos"
		},
		"log": {
			"level": "warn",
			"format": "json"
		}
	}`

	err := os.WriteFile(configPath, []byte(configJSON), 0644)
	require.NoError(t, err)

	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, configPath, loader.ConfigFile())
	assert.Equal(t, "fileserver", cfg.Share.Hostname)
	assert.Equal(t, "/team/repo", cfg.Share.Path)
	assert.Equal(t, config.BackendLocal, cfg.Backend.Type)
	assert.Equal(t, "/mnt/repos", cfg.Backend.MountPath)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoaderFileEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sharegate.yaml")

	configYAML := "share:\n  hostname: fileserver\n  username: backup\n"
	require.NoError(t, os.WriteFile(configPath, []byte(configYAML), 0644))

	t.Setenv("SHAREGATE_SHARE_USERNAME", "override")

	cfg, err := config.NewLoader(configPath).Load()
	require.NoError(t, err)
	assert.Equal(t, "fileserver", cfg.Share.Hostname)
	assert.Equal(t, "override", cfg.Share.Username)
}

func TestLoaderMissingFile(t *testing.T) {
	_, err := config.NewLoader(filepath.Join(t.TempDir(), "absent.json")).Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "load config file")
}

func TestLoaderInvalid(t *testing.T) {
	t.Setenv("SHAREGATE_BACKEND_TYPE", "ftp")

	_, err := config.NewLoader("").Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestConfigSettings(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Share = config.ShareConfig{
		Hostname: "nas",
		Username: "u",
		Password: "p",
		Share:    "data",
	}

	s, err := cfg.Settings()
	require.NoError(t, err)
	assert.Equal(t, "nas", s.Hostname())
	assert.Equal(t, "/", s.Path())
}

func TestConfigEnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = filepath.Join(tmpDir, "data")
	cfg.Storage.TempDir = filepath.Join(tmpDir, "data", "temp")
	cfg.Journal.Path = filepath.Join(tmpDir, "journal", "journal.db")
	cfg.Log.File = filepath.Join(tmpDir, "logs", "app.log")

	err := cfg.EnsureDirectories()
	require.NoError(t, err)

	assert.DirExists(t, cfg.Storage.DataDir)
	assert.DirExists(t, cfg.Storage.TempDir)
	assert.DirExists(t, filepath.Dir(cfg.Journal.Path))
	assert.DirExists(t, filepath.Dir(cfg.Log.File))
}
