package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/hex"
)

type sliceSource struct {
	states []core.GameState
}

func (s *sliceSource) Next(ctx context.Context) (core.GameState, error) {
	if len(s.states) == 0 {
		return core.GameState{}, errors.New("exhausted")
	}
	st := s.states[0]
	s.states = s.states[1:]
	return st, nil
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Move(core.MoveAction{VehicleID: 1, Target: hex.Axial(1, 0)})
	r.Shoot(core.ShootAction{VehicleID: 2, Target: hex.Axial(0, 1)})
	r.Turn()

	assert.Equal(t, []core.ActionKind{core.ActionMove, core.ActionShoot, core.ActionTurnEnd}, r.Kinds())
	calls := r.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, 1, calls[0].Move.VehicleID)
	assert.Equal(t, 2, calls[1].Shoot.VehicleID)

	r.Reset()
	assert.Empty(t, r.Calls())
}

func TestPrimed(t *testing.T) {
	src := &sliceSource{states: []core.GameState{{CurrentTurn: 2}}}
	p := Primed(core.GameState{CurrentTurn: 1}, src)

	st, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.CurrentTurn)

	st, err = p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, st.CurrentTurn)

	_, err = p.Next(context.Background())
	assert.Error(t, err)
}
