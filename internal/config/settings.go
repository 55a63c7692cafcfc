package config

import (
	"fmt"
	"strings"

	"github.com/TheMichaelB/sharegate/internal/models"
)

// Setting keys understood by NewSettings.
const (
	KeyHostname = "hostname"
	KeyUsername = "username"
	KeyPassword = "password"
	KeyShare    = "share"
	KeyPath     = "path"
)

// DefaultRootPath is used when no repository path is configured.
const DefaultRootPath = "/"

// OptionSpec describes one connection setting.
type OptionSpec struct {
	Key       string
	Label     string
	Required  bool
	Sensitive bool
	Default   string
}

// OptionSpecs lists the connection settings in declaration order.
var OptionSpecs = []OptionSpec{
	{Key: KeyHostname, Label: "Hostname", Required: true},
	{Key: KeyUsername, Label: "Username", Required: true},
	{Key: KeyPassword, Label: "Password", Required: true, Sensitive: true},
	{Key: KeyShare, Label: "Share", Required: true},
	{Key: KeyPath, Label: "Path", Default: DefaultRootPath},
}

// Settings holds validated connection settings for one share. The zero
// value is unusable; build one with NewSettings.
type Settings struct {
	hostname string
	username string
	password string
	share    string
	path     string
}

// NewSettings validates raw option values. Every missing required key is
// reported in a single *models.ValidationError.
func NewSettings(raw map[string]string) (Settings, error) {
	values := make(map[string]string, len(OptionSpecs))
	var missing []string

	for _, spec := range OptionSpecs {
		v := raw[spec.Key]
		if strings.TrimSpace(v) == "" {
			if spec.Required {
				missing = append(missing, spec.Key)
				continue
			}
			v = spec.Default
		}
		values[spec.Key] = v
	}

	if len(missing) > 0 {
		return Settings{}, &models.ValidationError{Missing: missing}
	}

	return Settings{
		hostname: values[KeyHostname],
		username: values[KeyUsername],
		password: values[KeyPassword],
		share:    values[KeyShare],
		path:     values[KeyPath],
	}, nil
}

func (s Settings) Hostname() string { return s.hostname }
func (s Settings) Username() string { return s.username }
func (s Settings) Password() string { return s.password }
func (s Settings) Share() string    { return s.share }
func (s Settings) Path() string     { return s.path }

// String renders the settings with the password hidden.
func (s Settings) String() string {
	password := "none"
	if s.password != "" {
		password = "<hidden>"
	}
	return fmt.Sprintf("Settings{hostname=%s, share=%s, path=%s, username=%s, password=%s}",
		s.hostname, s.share, s.path, s.username, password)
}

// GoString keeps %#v from printing the password.
func (s Settings) GoString() string {
	return s.String()
}
