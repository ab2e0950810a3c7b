package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexforge/tankbot/internal/dispatcher"
	"github.com/hexforge/tankbot/internal/gamemap"
	"github.com/hexforge/tankbot/internal/match"
	"github.com/hexforge/tankbot/internal/player"
	"github.com/hexforge/tankbot/internal/roster"
	"github.com/hexforge/tankbot/internal/scheduler"
	"github.com/hexforge/tankbot/internal/transport"
	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/hex"
)

// rotation hands the turn to players 1..n in order for the given number
// of game turns, then reports the match finished.
type rotation struct {
	mu      sync.Mutex
	base    core.GameState
	players int
	turns   int
	next    int
}

func (s *rotation) Next(ctx context.Context) (core.GameState, error) {
	if err := ctx.Err(); err != nil {
		return core.GameState{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.base
	st.CurrentTurn = s.next
	st.CurrentPlayerIdx = s.next%s.players + 1
	st.Finished = s.next >= s.turns
	s.next++
	return st, nil
}

type entry struct {
	turn  scheduler.Turn
	owner int
}

// journal is a shared mutation log; it fails the test if two strategies
// ever act at the same time.
type journal struct {
	t       *testing.T
	mu      sync.Mutex
	entries []entry
	active  atomic.Int32
}

type journaling struct {
	id int
	j  *journal
}

func (s journaling) PlayTurn(_ context.Context, turn scheduler.Turn) error {
	if n := s.j.active.Add(1); n != 1 {
		s.j.t.Errorf("%d agents acting at once", n)
	}
	defer s.j.active.Add(-1)
	time.Sleep(time.Millisecond)

	s.j.mu.Lock()
	s.j.entries = append(s.j.entries, entry{turn: turn, owner: s.id})
	s.j.mu.Unlock()
	return nil
}

func emptyMap(t *testing.T, players int) (*gamemap.Map, core.GameState) {
	t.Helper()
	st := core.GameState{NumPlayers: players, Vehicles: map[string]core.Vehicle{}}
	for i := 1; i <= players; i++ {
		st.Players = append(st.Players, core.PlayerInfo{Idx: i})
	}
	gm, err := gamemap.Build(core.GameMap{Size: 3}, st, roster.FromState(st))
	require.NoError(t, err)
	return gm, st
}

func TestRunner_TotalOrderUnderManyAgents(t *testing.T) {
	const players, turns = 5, 40
	gm, st := emptyMap(t, players)
	j := &journal{t: t}

	var agents []*player.Agent
	for id := 1; id <= players; id++ {
		agents = append(agents, player.NewAgent(id, "bot", journaling{id: id, j: j}, nil))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r := New(gm, scheduler.New(), &rotation{base: st, players: players, turns: turns}, transport.NewRecorder(), agents)
	require.NoError(t, r.Run(ctx))

	require.Len(t, j.entries, turns)
	for i, e := range j.entries {
		assert.Equal(t, uint64(i+1), e.turn.Number, "entry %d", i)
		assert.Equal(t, i%players+1, e.owner, "entry %d", i)
		assert.Equal(t, e.owner, e.turn.Owner)
	}
}

func TestRunner_RemoteTurnsPassThroughTransport(t *testing.T) {
	gm, st := emptyMap(t, 3)
	j := &journal{t: t}
	agents := []*player.Agent{player.NewAgent(2, "local", journaling{id: 2, j: j}, nil)}
	rec := transport.NewRecorder()
	mc := match.NewContext()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r := New(gm, scheduler.New(), &rotation{base: st, players: 3, turns: 6}, rec, agents, WithMatchContext(mc))
	require.NoError(t, r.Run(ctx))

	// Turns 0..5 rotate 1,2,3,1,2,3: player 2 is local twice.
	assert.Len(t, j.entries, 2)
	assert.Equal(t, []core.ActionKind{core.ActionTurnEnd, core.ActionTurnEnd, core.ActionTurnEnd, core.ActionTurnEnd}, rec.Kinds())
	assert.True(t, mc.Finished())
}

func turnCount(r *transport.Recorder) int {
	n := 0
	for _, k := range r.Kinds() {
		if k == core.ActionTurnEnd {
			n++
		}
	}
	return n
}

func TestRunner_SeatsPassTurnsTheyDoNotOwn(t *testing.T) {
	tests := []struct {
		name        string
		primarySeat bool
		wantPrimary int
	}{
		// Owners rotate 1,2,3,1,2,3. Seat 1 passes when 2 or 3 owns.
		{"primary is a seat", true, 4},
		// Observer primary only speaks for remote owners 1 and 3.
		{"observer primary", false, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gm, st := emptyMap(t, 3)
			j := &journal{t: t}
			primary := transport.NewRecorder()
			second := transport.NewRecorder()

			agents := []*player.Agent{player.NewAgent(2, "second", journaling{id: 2, j: j}, nil)}
			seats := map[int]transport.Transport{2: second}
			if tt.primarySeat {
				agents = append(agents, player.NewAgent(1, "first", journaling{id: 1, j: j}, nil))
				seats[1] = primary
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			r := New(gm, scheduler.New(), &rotation{base: st, players: 3, turns: 6}, primary, agents, WithSeats(seats))
			require.NoError(t, r.Run(ctx))

			assert.Equal(t, tt.wantPrimary, turnCount(primary))
			assert.Equal(t, 4, turnCount(second), "seat 2 passes every slot owned by 1 or 3")
			assert.Len(t, j.entries, len(agents)*2)
		})
	}
}

func TestRunner_ReconcilePublishesRecords(t *testing.T) {
	st := core.GameState{
		Players:  []core.PlayerInfo{{Idx: 1}},
		Vehicles: map[string]core.Vehicle{"1": {PlayerID: 1, VehicleType: "spg", Health: 1, Position: hex.Origin, SpawnPosition: hex.Origin}},
	}
	gm, err := gamemap.Build(core.GameMap{Size: 3}, st, roster.FromState(st))
	require.NoError(t, err)

	d, err := dispatcher.New(nopLogger{})
	require.NoError(t, err)
	var got []dispatcher.Event
	collect := func(e dispatcher.Event) (any, error) { got = append(got, e); return nil, nil }
	d.Register(EventReconcile, collect)
	d.Register(EventTankState, collect)

	r := New(gm, scheduler.New(), nil, transport.NewRecorder(), nil, WithEvents(d))
	moved := st
	moved.CurrentTurn = 3
	moved.Vehicles = map[string]core.Vehicle{"1": {PlayerID: 1, VehicleType: "spg", Health: 1, Position: hex.Axial(1, 0), SpawnPosition: hex.Origin}}
	require.NoError(t, r.Reconcile(moved))

	require.Len(t, got, 2)
	rec := got[0].Payload.(core.TurnRecord)
	assert.Equal(t, 3, rec.GameTurn)
	assert.Equal(t, 1, rec.Reconciled)
	states := got[1].Payload.([]core.TankState)
	require.Len(t, states, 1)
	assert.Equal(t, hex.Axial(1, 0), states[0].Position)
}

func TestRunner_ReconcileRefusedWhileTurnHeld(t *testing.T) {
	gm, st := emptyMap(t, 1)
	sched := scheduler.New()
	sched.Advance(1)
	_, err := sched.Acquire(context.Background(), 1)
	require.NoError(t, err)

	r := New(gm, sched, nil, transport.NewRecorder(), nil)
	assert.ErrorIs(t, r.Reconcile(st), ErrTurnHeld)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
