package gamemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexforge/tankbot/internal/roster"
	"github.com/hexforge/tankbot/internal/tactics"
	"github.com/hexforge/tankbot/internal/tank"
	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/hex"
)

func TestLocalMove(t *testing.T) {
	m := mustBuild(t, layout(3, nil), twoPlayerState(map[int]core.Vehicle{
		1: vehicle(1, "light_tank", hex.Origin, 1),
	}))
	tk, _ := m.Tank(1)

	require.NoError(t, m.LocalMove(tk, hex.Axial(2, 0)))
	assert.Nil(t, m.Occupant(hex.Origin))
	assert.Same(t, tk, m.Occupant(hex.Axial(2, 0)))
	assertConsistent(t, m)

	err := m.LocalMove(tk, hex.Axial(3, 0))
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.Equal(t, hex.Axial(2, 0), tk.Position())
}

func TestLocalMove_RejectsBlockedCells(t *testing.T) {
	rock := hex.Axial(0, 1)
	m := mustBuild(t, layout(3, map[string][]hex.Hex{core.ContentObstacle: {rock}}), twoPlayerState(map[int]core.Vehicle{
		1: vehicle(1, "light_tank", hex.Axial(-1, 0), 1),
		3: vehicle(2, "heavy_tank", hex.Origin, 3),
		4: vehicle(2, "spg", hex.Axial(1, 0), 0),
	}))
	tk, _ := m.Tank(1)
	enemy, _ := m.Tank(3)

	tests := []struct {
		name string
		dest hex.Hex
		want error
	}{
		{"live tank", hex.Origin, ErrOccupied},
		{"obstacle", rock, ErrImpassable},
		{"off grid", hex.Axial(3, 0), ErrOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, m.LocalMove(tk, tt.dest), tt.want)
			assert.Equal(t, hex.Axial(-1, 0), tk.Position())
			assert.Same(t, tk, m.Occupant(hex.Axial(-1, 0)))
			assert.Same(t, enemy, m.Occupant(hex.Origin))
			assertConsistent(t, m)
		})
	}

	require.NoError(t, m.LocalMove(tk, hex.Axial(-1, 0)), "own cell")
	require.NoError(t, m.LocalMove(tk, hex.Axial(1, 0)), "destroyed tank does not hold its cell")
	assert.Same(t, tk, m.Occupant(hex.Axial(1, 0)))
	assertConsistent(t, m)
}

func TestLocalShoot_LedgerAndDestruction(t *testing.T) {
	m := mustBuild(t, layout(4, nil), twoPlayerState(map[int]core.Vehicle{
		1: vehicle(1, "medium_tank", hex.Origin, 2),
		2: vehicle(2, "heavy_tank", hex.Axial(2, 0), 3),
		3: vehicle(2, "spg", hex.Axial(0, 2), 1),
	}))
	attacker, _ := m.Tank(1)
	heavy, _ := m.Tank(2)
	spg, _ := m.Tank(3)

	m.LocalShoot(attacker, heavy)
	m.LocalShoot(attacker, spg)

	assert.Equal(t, 2, heavy.HP())
	assert.Same(t, heavy, m.Occupant(hex.Axial(2, 0)))
	assert.True(t, spg.Destroyed())
	assert.Nil(t, m.Occupant(hex.Axial(0, 2)))
	_, stillRegistered := m.Tank(3)
	assert.True(t, stillRegistered)
	assertConsistent(t, m)

	assert.Equal(t, []Shot{
		{TankID: 1, TargetTankID: 2, TargetPlayerID: 2},
		{TankID: 1, TargetTankID: 3, TargetPlayerID: 2},
	}, m.ShootActions(1))
	assert.Equal(t, []int{2}, m.AttackedBy(1))
	assert.Empty(t, m.AttackedBy(2))

	m.ResetShootActions(1)
	assert.Empty(t, m.ShootActions(1))
}

type stubPlanner struct {
	shot tactics.Shot
	dest hex.Hex
}

func (s stubPlanner) BestShot(tactics.Board, *tank.Tank) (tactics.Shot, bool) {
	return s.shot, len(s.shot.Affected) > 0
}

func (s stubPlanner) Destination(tactics.Board, *tank.Tank) (hex.Hex, bool) {
	return s.dest, s.dest != hex.Origin
}

func TestQueriesUsePlanner(t *testing.T) {
	st := twoPlayerState(map[int]core.Vehicle{
		1: vehicle(1, "spg", hex.Origin, 1),
	})
	m, err := Build(layout(3, nil), st, roster.FromState(st), WithPlanner(stubPlanner{dest: hex.Axial(1, 0)}))
	require.NoError(t, err)
	tk, _ := m.Tank(1)

	_, ok := m.Shoot(tk)
	assert.False(t, ok)
	dest, ok := m.Move(tk)
	assert.True(t, ok)
	assert.Equal(t, hex.Axial(1, 0), dest)
}
