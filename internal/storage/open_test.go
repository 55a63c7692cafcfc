package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/sharegate/internal/config"
	"github.com/TheMichaelB/sharegate/internal/events"
	"github.com/TheMichaelB/sharegate/internal/storage"
)

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	s, err := config.NewSettings(map[string]string{
		"hostname": "nas.local",
		"username": "backup",
		"password": "secret",
		"share":    "repos",
	})
	require.NoError(t, err)
	return s
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	settings := testSettings(t)

	tests := []struct {
		name       string
		modify     func(*config.Config)
		wantScheme string
		wantErr    bool
	}{
		{
			name:       "smb",
			modify:     func(c *config.Config) {},
			wantScheme: "smb",
		},
		{
			name: "local mount reports smb",
			modify: func(c *config.Config) {
				c.Backend.Type = config.BackendLocal
				c.Backend.MountPath = t.TempDir()
			},
			wantScheme: "smb",
		},
		{
			name: "local mount missing",
			modify: func(c *config.Config) {
				c.Backend.Type = config.BackendLocal
				c.Backend.MountPath = "/definitely/not/mounted"
			},
			wantErr: true,
		},
		{
			name: "memory",
			modify: func(c *config.Config) {
				c.Backend.Type = config.BackendMemory
			},
			wantScheme: "mem",
		},
		{
			name: "s3 without bucket",
			modify: func(c *config.Config) {
				c.Backend.Type = config.BackendS3
			},
			wantErr: true,
		},
		{
			name: "unknown",
			modify: func(c *config.Config) {
				c.Backend.Type = "nfs"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.modify(cfg)

			share, err := storage.Open(ctx, cfg, settings, events.Discard())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantScheme, share.Scheme())
			assert.NoError(t, share.Close())
		})
	}
}
