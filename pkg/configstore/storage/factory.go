package storage

import (
	"fmt"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/configstore"
)

// NewFromConfig builds the storage backend selected by the store
// configuration.
func NewFromConfig(cfg *config.StoreConfig) (configstore.Storage, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStorage(), nil
	case config.BackendDurable:
		return NewSQLiteStorage(&SQLiteConfig{
			Path:        cfg.Path,
			BusyTimeout: cfg.BusyTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
