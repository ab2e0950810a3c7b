package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexforge/tankbot/internal/config"
	"github.com/hexforge/tankbot/internal/logging"
	"github.com/hexforge/tankbot/internal/storage"
	"github.com/hexforge/tankbot/internal/storage/memory"
	"github.com/hexforge/tankbot/internal/storage/postgres"
	sqlitestorage "github.com/hexforge/tankbot/internal/storage/sqlite"
)

var (
	_ storage.Backend    = (*memory.Backend)(nil)
	_ storage.Uploadable = (*memory.Backend)(nil)
	_ storage.Backend    = (*sqlitestorage.Backend)(nil)
	_ storage.Backend    = (*postgres.Backend)(nil)
)

func TestNewBackend(t *testing.T) {
	lm := logging.NewSlogManager()

	b, err := storage.NewBackend(config.StorageConfig{Type: "memory"}, lm)
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)

	b, err = storage.NewBackend(config.StorageConfig{}, lm)
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b, "memory is the default")

	b, err = storage.NewBackend(config.StorageConfig{Type: "sqlite"}, lm)
	require.NoError(t, err)
	assert.IsType(t, &sqlitestorage.Backend{}, b)

	b, err = storage.NewBackend(config.StorageConfig{Type: "postgres"}, lm)
	require.NoError(t, err)
	assert.IsType(t, &postgres.Backend{}, b)

	_, err = storage.NewBackend(config.StorageConfig{Type: "mongo"}, lm)
	assert.ErrorContains(t, err, "unknown storage type")
}
