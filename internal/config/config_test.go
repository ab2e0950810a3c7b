package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"server": { "url": "ws://game:9000/ws", "game": "cup-final" },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)
	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", GetString("logLevel"))
	assert.Equal(t, "ws://game:9000/ws", GetString("server.url"))
	assert.Equal(t, "cup-final", GetString("server.game"))
	assert.Equal(t, "10.0.0.1", GetString("db.host"))
	assert.Equal(t, "5433", GetString("db.port"))
	assert.Equal(t, 45, GetInt("server.numTurns"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", GetString("logLevel"))
	assert.Equal(t, "./logs", GetString("logsDir"))
	assert.Equal(t, "http://localhost:5000/api", GetString("api.serverUrl"))
	assert.Equal(t, "", GetString("api.apiKey"))
	assert.False(t, GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", GetString("graylog.address"))
	assert.False(t, GetBool("influx.enabled"))
	assert.Equal(t, "matches", GetString("influx.bucket"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetters(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	viper.Set("testInt", 42)
	viper.Set("testBool", true)

	assert.Equal(t, "testValue", GetString("testKey"))
	assert.Equal(t, 42, GetInt("testInt"))
	assert.True(t, GetBool("testBool"))
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, "./replays", cfg.Memory.OutputDir)
	assert.True(t, cfg.Memory.CompressOutput)
	assert.Equal(t, 3*time.Minute, cfg.SQLite.DumpInterval)
	assert.Equal(t, "tankbot", cfg.Postgres.Database)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"storage": {
			"type": "sqlite",
			"memory": { "outputDir": "/tmp/out", "compressOutput": false },
			"sqlite": { "dumpInterval": "10m", "dumpPath": "/tmp/m.db" }
		}
	}`)))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, "/tmp/out", sc.Memory.OutputDir)
	assert.False(t, sc.Memory.CompressOutput)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
	assert.Equal(t, "/tmp/m.db", sc.SQLite.DumpPath)
}

func TestGetOTelConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"otel": { "enabled": true, "batchTimeout": "30s", "endpoint": "localhost:4318", "insecure": false }
	}`)))

	oc := GetOTelConfig()
	assert.True(t, oc.Enabled)
	assert.Equal(t, "tankbot", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4318", oc.Endpoint)
	assert.False(t, oc.Insecure)
}

func TestGetServerConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	sc := GetServerConfig()
	assert.Equal(t, "ws://localhost:8080/ws", sc.URL)
	assert.Equal(t, 45, sc.NumTurns)
	assert.Equal(t, 3, sc.NumPlayers)
	assert.InDelta(t, 20.0, sc.ActionsPerSecond, 1e-9)
}

func TestGetPlayers(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"players": [
			{ "name": "alice", "password": "a" },
			{ "name": "bob", "external": true },
			{ "name": "eve", "observer": true }
		]
	}`)))

	players, err := GetPlayers()
	require.NoError(t, err)
	require.Len(t, players, 3)
	assert.Equal(t, PlayerConfig{Name: "alice", Password: "a"}, players[0])
	assert.True(t, players[1].External)
	assert.True(t, players[2].Observer)
}

func TestGetPlayers_Default(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	players, err := GetPlayers()
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, "tankbot", players[0].Name)
}

func TestGetRenderAndStatusConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"render": { "enabled": true, "outputDir": "/tmp/frames" },
		"status": { "enabled": true, "address": ":9000", "interval": "1s" }
	}`)))

	assert.Equal(t, RenderConfig{Enabled: true, OutputDir: "/tmp/frames"}, GetRenderConfig())
	assert.Equal(t, StatusConfig{Enabled: true, Address: ":9000", Interval: time.Second}, GetStatusConfig())
}

func TestGetInfluxConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	ic := GetInfluxConfig()
	assert.Equal(t, "http", ic.Protocol)
	assert.Equal(t, "8086", ic.Port)
	assert.Equal(t, "tankbot", ic.Org)
}
