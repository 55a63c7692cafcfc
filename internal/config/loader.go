package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SHAREGATE_SHARE_PASSWORD.
const EnvPrefix = "SHAREGATE"

// Loader handles configuration loading from multiple sources.
type Loader struct {
	configPath string
	v          *viper.Viper
}

// NewLoader creates a config loader. An empty configPath searches the
// default locations.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		v:          viper.New(),
	}
}

// ConfigFile returns the file the configuration was read from, if any.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Load reads configuration from defaults, file and environment, in
// increasing order of precedence.
func (l *Loader) Load() (*Config, error) {
	registerDefaults(l.v, DefaultConfig())

	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	} else {
		l.v.SetConfigName("sharegate")
		for _, dir := range defaultDirs() {
			l.v.AddConfigPath(dir)
		}
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("load config file %s: %w", l.v.ConfigFileUsed(), err)
			}
		}
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// defaultDirs returns default config file directories.
func defaultDirs() []string {
	dirs := []string{"."}

	if homeDir, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs,
			filepath.Join(homeDir, ".config", "sharegate"),
			filepath.Join(homeDir, ".sharegate"),
		)
	}

	return dirs
}

// registerDefaults makes every key known to viper so that environment
// overrides reach Unmarshal.
func registerDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("share.hostname", cfg.Share.Hostname)
	v.SetDefault("share.username", cfg.Share.Username)
	v.SetDefault("share.password", cfg.Share.Password)
	v.SetDefault("share.share", cfg.Share.Share)
	v.SetDefault("share.path", cfg.Share.Path)
	v.SetDefault("share.domain", cfg.Share.Domain)

	v.SetDefault("backend.type", cfg.Backend.Type)
	v.SetDefault("backend.port", cfg.Backend.Port)
	v.SetDefault("backend.mount_path", cfg.Backend.MountPath)
	v.SetDefault("backend.bucket", cfg.Backend.Bucket)
	v.SetDefault("backend.region", cfg.Backend.Region)
	v.SetDefault("backend.endpoint", cfg.Backend.Endpoint)

	v.SetDefault("storage.data_dir", cfg.Storage.DataDir)
	v.SetDefault("storage.temp_dir", cfg.Storage.TempDir)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.color", cfg.Log.Color)

	v.SetDefault("journal.enabled", cfg.Journal.Enabled)
	v.SetDefault("journal.driver", cfg.Journal.Driver)
	v.SetDefault("journal.path", cfg.Journal.Path)

	v.SetDefault("metrics.textfile", cfg.Metrics.Textfile)
}
