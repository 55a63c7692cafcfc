package state

import (
	"errors"
	"fmt"

	"github.com/TheMichaelB/sharegate/internal/config"
	"github.com/TheMichaelB/sharegate/internal/events"
	"github.com/TheMichaelB/sharegate/internal/models"
)

// Store persists the transfer journal.
type Store interface {
	// Append records a finished operation. Stores that assign IDs set rec.ID.
	Append(rec *models.TransferRecord) error

	// Recent returns up to limit records, newest first. A limit <= 0
	// returns everything.
	Recent(limit int) ([]models.TransferRecord, error)

	// Close releases resources.
	Close() error
}

// Errors
var (
	ErrStoreClosed  = errors.New("journal is closed")
	ErrStoreCorrupt = errors.New("journal file is corrupt")
)

// Open creates the journal store selected by cfg.Driver.
func Open(cfg config.JournalConfig, logger *events.Logger) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLiteStore(cfg.Path, logger)
	case "json":
		return NewJSONStore(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unknown journal driver: %s", cfg.Driver)
	}
}
