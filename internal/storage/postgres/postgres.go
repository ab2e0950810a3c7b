// Package postgres implements the storage.Backend interface on a
// PostgreSQL database through the shared GORM backend.
package postgres

import (
	"fmt"

	"github.com/hexforge/tankbot/internal/config"
	"github.com/hexforge/tankbot/internal/database"
	"github.com/hexforge/tankbot/internal/logging"
	gormstore "github.com/hexforge/tankbot/internal/storage/gorm"
)

// Backend connects lazily in Init.
type Backend struct {
	*gormstore.Backend
	cfg config.DBConfig
	log *logging.SlogManager
}

func New(cfg config.DBConfig, logManager *logging.SlogManager) *Backend {
	return &Backend{cfg: cfg, log: logManager}
}

// Init opens and validates the connection, then hands over to the GORM
// backend for migration and the writer.
func (b *Backend) Init() error {
	db, err := database.OpenPostgres(b.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)

	b.Backend = gormstore.New(gormstore.Dependencies{DB: db, LogManager: b.log})
	if err := b.Backend.Init(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.log.WriteLog("postgres", fmt.Sprintf("Connected to %s:%s/%s", b.cfg.Host, b.cfg.Port, b.cfg.Database), "INFO")
	return nil
}

// Close is safe before a successful Init.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}
