package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hexforge/tankbot/internal/database"
	"github.com/hexforge/tankbot/internal/model"
	gormstore "github.com/hexforge/tankbot/internal/storage/gorm"
	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/hex"
)

// recordMatch stores a short match in db and returns its id.
func recordMatch(t *testing.T, db *gorm.DB, session string) uint {
	t.Helper()
	b := gormstore.New(gormstore.Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())

	m := &core.Match{
		SessionID:  session,
		GameName:   "duel",
		MapName:    "tiny",
		MapSize:    3,
		NumPlayers: 2,
		NumTurns:   10,
		StartTime:  time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		Players:    []core.PlayerInfo{{Idx: 1, Name: "alice"}, {Idx: 2, Name: "bob"}},
	}
	require.NoError(t, b.StartMatch(m))

	target := hex.Axial(1, 0)
	require.NoError(t, b.RecordTurn(&core.TurnRecord{Turn: 1, Owner: 1, Reconciled: 2}))
	require.NoError(t, b.RecordAction(&core.ActionRecord{Turn: 1, PlayerID: 1, Kind: core.ActionMove, VehicleID: 1, Target: &target}))
	require.NoError(t, b.RecordTankState(&core.TankState{Turn: 1, VehicleID: 1, PlayerID: 1, Position: target, Health: 2}))
	require.NoError(t, b.EndMatch())
	require.NoError(t, b.Close())
	return m.ID
}

func memoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSqlite("")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"1", "42"})
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 42}, ids)

	_, err = parseIDs([]string{"x"})
	assert.Error(t, err)
}

func TestExportMatches(t *testing.T) {
	db := memoryDB(t)
	id := recordMatch(t, db, "sess-export")
	dir := t.TempDir()

	paths, err := exportMatches(db, []uint{id}, dir, false)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, dir, filepath.Dir(paths[0]))
	assert.Regexp(t, `^duel_\d{8}_\d{6}\.json$`, filepath.Base(paths[0]))

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sess-export"`)

	_, err = exportMatches(db, []uint{id + 100}, dir, false)
	assert.ErrorIs(t, err, gormstore.ErrMatchNotFound)
}

func TestMigrateBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tankbot.db")

	src, err := database.OpenSqlite(path)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(src))
	recordMatch(t, src, "sess-backup")
	sqlDB, err := src.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	dst := memoryDB(t)
	recordMatch(t, dst, "sess-existing")

	require.NoError(t, migrateBackups(dst, dir))

	var matches []model.Match
	require.NoError(t, dst.Order("id").Find(&matches).Error)
	require.Len(t, matches, 2)
	assert.Equal(t, "sess-backup", matches[1].SessionID)

	rec, err := gormstore.LoadMatch(dst, matches[1].ID)
	require.NoError(t, err)
	assert.Len(t, rec.Turns, 1)
	assert.Len(t, rec.Actions, 1)
	assert.Len(t, rec.Tanks, 1)
	assert.Len(t, rec.Match.Players, 2)

	_, err = os.Stat(path + ".migrated")
	assert.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCopyMatchSkipsKnownSession(t *testing.T) {
	db := memoryDB(t)
	id := recordMatch(t, db, "sess-dup")
	rec, err := gormstore.LoadMatch(db, id)
	require.NoError(t, err)

	ok, err := copyMatch(db, rec)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMigrateBackupsEmptyDir(t *testing.T) {
	assert.NoError(t, migrateBackups(memoryDB(t), t.TempDir()))
}
