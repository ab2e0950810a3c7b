package gormstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexforge/tankbot/internal/database"
	"github.com/hexforge/tankbot/internal/model"
	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/hex"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.OpenSqlite("")
	require.NoError(t, err)

	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func testMatch() *core.Match {
	return &core.Match{
		SessionID:  "sess-1",
		GameName:   "duel",
		MapName:    "tiny",
		MapSize:    5,
		NumPlayers: 2,
		NumTurns:   12,
		StartTime:  time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		Players:    []core.PlayerInfo{{Idx: 1, Name: "alice"}, {Idx: 2, Name: "bob"}},
		Layout:     core.GameMap{Size: 5, Name: "tiny"},
	}
}

func TestNoDatabase(t *testing.T) {
	b := New(Dependencies{})
	assert.Error(t, b.Init())
	assert.NoError(t, b.StartMatch(testMatch()))
	assert.NoError(t, b.Flush())
}

func TestStartMatchAssignsID(t *testing.T) {
	b := newTestBackend(t)

	m := testMatch()
	require.NoError(t, b.StartMatch(m))
	assert.NotZero(t, m.ID)

	var participants []model.Participant
	require.NoError(t, b.DB().Where("match_id = ?", m.ID).Find(&participants).Error)
	assert.Len(t, participants, 2)
}

func TestRowsAreQueuedUntilFlush(t *testing.T) {
	b := newTestBackend(t)
	m := testMatch()
	require.NoError(t, b.StartMatch(m))

	target := hex.Hex{Q: 1, R: -1, S: 0}
	require.NoError(t, b.RecordTurn(&core.TurnRecord{Turn: 1, GameTurn: 0, Owner: 1, Reconciled: 4}))
	require.NoError(t, b.RecordAction(&core.ActionRecord{Turn: 1, PlayerID: 1, Kind: core.ActionMove, VehicleID: 1, Target: &target}))
	require.NoError(t, b.RecordAction(&core.ActionRecord{Turn: 1, PlayerID: 1, Kind: core.ActionTurnEnd}))
	require.NoError(t, b.RecordTankState(&core.TankState{Turn: 1, VehicleID: 1, PlayerID: 1, Position: target, Health: 2}))
	assert.Equal(t, 4, b.Pending())

	var count int64
	require.NoError(t, b.DB().Model(&model.ActionRecord{}).Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, b.Flush())
	assert.Zero(t, b.Pending())

	rec, err := LoadMatch(b.DB(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, "duel", rec.Match.GameName)
	assert.Len(t, rec.Match.Players, 2)
	require.Len(t, rec.Turns, 1)
	assert.Equal(t, 4, rec.Turns[0].Reconciled)
	require.Len(t, rec.Actions, 2)
	assert.Equal(t, &target, rec.Actions[0].Target)
	assert.Nil(t, rec.Actions[1].Target)
	require.Len(t, rec.Tanks, 1)
	assert.Equal(t, target, rec.Tanks[0].Position)
}

func TestEndMatchFlushesAndStampsEnd(t *testing.T) {
	b := newTestBackend(t)
	m := testMatch()
	require.NoError(t, b.StartMatch(m))
	require.NoError(t, b.RecordTurn(&core.TurnRecord{Turn: 1}))

	require.NoError(t, b.EndMatch())
	assert.Zero(t, b.Pending())

	var stored model.Match
	require.NoError(t, b.DB().First(&stored, m.ID).Error)
	assert.True(t, stored.EndTime.Valid)
}

func TestCloseFlushes(t *testing.T) {
	db, err := database.OpenSqlite("")
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())

	m := testMatch()
	require.NoError(t, b.StartMatch(m))
	require.NoError(t, b.RecordTankState(&core.TankState{Turn: 2, VehicleID: 3}))
	require.NoError(t, b.Close())
	require.NoError(t, b.Close(), "close is idempotent")

	rec, err := LoadMatch(db, m.ID)
	require.NoError(t, err)
	assert.Len(t, rec.Tanks, 1)
}

func TestWriterLoopFlushesPeriodically(t *testing.T) {
	db, err := database.OpenSqlite("")
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: 10 * time.Millisecond})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartMatch(testMatch()))
	require.NoError(t, b.RecordTurn(&core.TurnRecord{Turn: 1}))
	assert.Eventually(t, func() bool { return b.Pending() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestLoadMatchUnknown(t *testing.T) {
	b := newTestBackend(t)
	_, err := LoadMatch(b.DB(), 99)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}
