package storage

import (
	"context"
	"fmt"

	"github.com/TheMichaelB/sharegate/internal/config"
	"github.com/TheMichaelB/sharegate/internal/events"
	s3backend "github.com/TheMichaelB/sharegate/internal/storage/s3"
	"github.com/TheMichaelB/sharegate/internal/storage/smb"
)

// Open creates the Share selected by cfg.Backend.Type. The SMB and S3
// backends connect lazily, so Open does no network I/O for them.
func Open(ctx context.Context, cfg *config.Config, settings config.Settings, logger *events.Logger) (Share, error) {
	switch cfg.Backend.Type {
	case config.BackendSMB:
		return smb.New(smb.Config{
			Host:     settings.Hostname(),
			Port:     cfg.Backend.Port,
			Share:    settings.Share(),
			User:     settings.Username(),
			Password: settings.Password(),
			Domain:   cfg.Share.Domain,
		}, logger)

	case config.BackendLocal:
		store, err := NewLocalStore(cfg.Backend.MountPath, logger)
		if err != nil {
			return nil, fmt.Errorf("local backend at %s: %w", cfg.Backend.MountPath, err)
		}
		store.SetScheme("smb")
		return store, nil

	case config.BackendS3:
		return s3backend.New(ctx, s3backend.Config{
			Bucket:   cfg.Backend.Bucket,
			Prefix:   settings.Share(),
			Region:   cfg.Backend.Region,
			Endpoint: cfg.Backend.Endpoint,
		}, logger)

	case config.BackendMemory:
		return NewMockStore(), nil

	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Backend.Type)
	}
}
