package player

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hexforge/tankbot/internal/gamemap"
	"github.com/hexforge/tankbot/internal/roster"
	"github.com/hexforge/tankbot/internal/tactics"
	"github.com/hexforge/tankbot/internal/tank"
	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/hex"
)

func vehicle(player int, class string, pos hex.Hex, hp int) core.Vehicle {
	return core.Vehicle{PlayerID: player, VehicleType: class, Health: hp, SpawnPosition: pos, Position: pos}
}

type world struct {
	gm    *gamemap.Map
	alice *roster.Player
	bob   *roster.Player
}

func newWorld(t *testing.T, content map[string][]hex.Hex, vehicles map[int]core.Vehicle, opts ...gamemap.Option) world {
	t.Helper()
	st := core.GameState{
		NumPlayers: 2,
		Players:    []core.PlayerInfo{{Idx: 1, Name: "alice"}, {Idx: 2, Name: "bob"}},
		Vehicles:   make(map[string]core.Vehicle),
	}
	for id, v := range vehicles {
		st.Vehicles[core.VehicleKey(id)] = v
	}
	players := roster.FromState(st)
	gm, err := gamemap.Build(core.GameMap{Size: 5, Name: "arena", Content: content}, st, players, opts...)
	require.NoError(t, err)
	alice, _ := players.Get(1)
	bob, _ := players.Get(2)
	return world{gm: gm, alice: alice, bob: bob}
}

func (w world) tank(t *testing.T, id int) *tank.Tank {
	t.Helper()
	tk, ok := w.gm.Tank(id)
	require.True(t, ok, "tank %d", id)
	return tk
}

// routePlanner never shoots and sends every tank to a fixed hex.
type routePlanner struct{ dest hex.Hex }

func (p routePlanner) BestShot(tactics.Board, *tank.Tank) (tactics.Shot, bool) {
	return tactics.Shot{}, false
}

func (p routePlanner) Destination(_ tactics.Board, t *tank.Tank) (hex.Hex, bool) {
	return p.dest, t.Position() != p.dest
}
