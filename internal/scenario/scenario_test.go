package scenario

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/hex"
)

func TestLoad_Duel(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "duel.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "duel", s.Map.Name)
	assert.Equal(t, 5, s.Map.Size)
	assert.Equal(t, []hex.Hex{hex.Origin, hex.Axial(1, -1)}, s.Map.Content[core.ContentBase])
	assert.Len(t, s.Map.Content[core.ContentCatapult], 1)

	assert.Equal(t, 2, s.State.NumPlayers)
	assert.Equal(t, 12, s.State.NumTurns)
	assert.Equal(t, 1, s.State.CurrentPlayerIdx)
	require.Len(t, s.State.Vehicles, 4)

	heavy := s.State.Vehicles["2"]
	assert.Equal(t, 3, heavy.Health)
	assert.Equal(t, hex.Axial(-4, 1), heavy.Position)
	assert.Equal(t, heavy.Position, heavy.SpawnPosition)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no size", "map: {}\nstate: {players: [{idx: 1}]}"},
		{"no players", "map: {size: 3}"},
		{"unknown owner", `
map: {size: 3}
state:
  players: [{idx: 1}]
  vehicles:
    "1": {player_id: 7, vehicle_type: spg, position: {x: 0, y: 0, z: 0}}
`},
		{"unknown class", `
map: {size: 3}
state:
  players: [{idx: 1}]
  vehicles:
    "1": {player_id: 1, vehicle_type: zeppelin, position: {x: 0, y: 0, z: 0}}
`},
		{"bad vehicle key", `
map: {size: 3}
state:
  players: [{idx: 1}]
  vehicles:
    one: {player_id: 1, vehicle_type: spg, position: {x: 0, y: 0, z: 0}}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParse_BadCube(t *testing.T) {
	_, err := Parse([]byte("map:\n  size: 3\n  content:\n    base: [{x: 1, y: 1, z: 1}]\nstate: {players: [{idx: 1}]}"))
	assert.ErrorIs(t, err, hex.ErrInvalidCube)
}
