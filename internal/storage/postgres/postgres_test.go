package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hexforge/tankbot/internal/config"
	"github.com/hexforge/tankbot/internal/logging"
)

func TestInitUnreachable(t *testing.T) {
	b := New(config.DBConfig{Host: "127.0.0.1", Port: "1", Username: "u", Database: "d"}, logging.NewSlogManager())
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}
