package gamemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexforge/tankbot/internal/roster"
	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/hex"
)

func vehicle(player int, class string, pos hex.Hex, hp int) core.Vehicle {
	return core.Vehicle{
		PlayerID:      player,
		VehicleType:   class,
		Health:        hp,
		SpawnPosition: pos,
		Position:      pos,
	}
}

func twoPlayerState(vehicles map[int]core.Vehicle) core.GameState {
	st := core.GameState{
		NumPlayers: 2,
		NumTurns:   45,
		Players: []core.PlayerInfo{
			{Idx: 1, Name: "alice"},
			{Idx: 2, Name: "bob"},
		},
		Vehicles: make(map[string]core.Vehicle, len(vehicles)),
	}
	for id, v := range vehicles {
		st.Vehicles[core.VehicleKey(id)] = v
	}
	return st
}

func layout(size int, content map[string][]hex.Hex) core.GameMap {
	return core.GameMap{Size: size, Name: "test", Content: content}
}

func mustBuild(t *testing.T, l core.GameMap, st core.GameState) *Map {
	t.Helper()
	m, err := Build(l, st, roster.FromState(st))
	require.NoError(t, err)
	return m
}

// assertConsistent checks that the position index and the grid agree.
func assertConsistent(t *testing.T, m *Map) {
	t.Helper()
	for id, pos := range m.TankPositions() {
		tk, ok := m.Tank(id)
		require.True(t, ok)
		assert.Equal(t, pos, tk.Position(), "tank %d index", id)
		if tk.Destroyed() {
			assert.NotSame(t, tk, m.Occupant(pos), "destroyed tank %d still occupies %s", id, pos)
			continue
		}
		assert.Same(t, tk, m.Occupant(pos), "tank %d not in its cell %s", id, pos)
	}
	for _, h := range m.Hexes() {
		if o := m.Occupant(h); o != nil {
			assert.Equal(t, h, m.TankPositions()[o.ID()], "occupant of %s", h)
		}
	}
}
