package storage

import (
	"fmt"

	"github.com/hexforge/tankbot/internal/config"
	"github.com/hexforge/tankbot/internal/logging"
	"github.com/hexforge/tankbot/internal/storage/memory"
	"github.com/hexforge/tankbot/internal/storage/postgres"
	sqlitestorage "github.com/hexforge/tankbot/internal/storage/sqlite"
)

// NewBackend creates a storage backend based on configuration.
func NewBackend(cfg config.StorageConfig, logManager *logging.SlogManager) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(cfg.Postgres, logManager), nil
	case "sqlite":
		b, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     cfg.SQLite.DumpPath,
		}, logManager)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "memory", "":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
