// Package orchestrator drives a match: it pulls snapshots, reconciles the
// map between turns and hands the turn token to local agents.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hexforge/tankbot/internal/dispatcher"
	"github.com/hexforge/tankbot/internal/gamemap"
	"github.com/hexforge/tankbot/internal/match"
	"github.com/hexforge/tankbot/internal/player"
	"github.com/hexforge/tankbot/internal/scheduler"
	"github.com/hexforge/tankbot/internal/transport"
	"github.com/hexforge/tankbot/pkg/core"
)

// Event kinds published by the runner.
const (
	EventReconcile = "reconcile"
	EventTankState = "tank_state"
	EventMatchEnd  = "match_end"
)

// ErrTurnHeld means a snapshot arrived while an agent still held the gate.
var ErrTurnHeld = errors.New("reconcile while a turn is held")

// Observer sees the map after every reconciliation. It must not mutate it.
type Observer interface {
	Observe(gameTurn int, gm *gamemap.Map) error
}

type Option func(*Runner)

func WithMatchContext(c *match.Context) Option {
	return func(r *Runner) { r.match = c }
}

func WithEvents(d *dispatcher.Dispatcher) Option {
	return func(r *Runner) { r.events = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observers = append(r.observers, o) }
}

// WithSeats gives local participants their own connection. On every
// snapshot each seat whose participant does not own the turn ends its turn
// right away, so the server never waits on a local player that has
// nothing to do. Leave unset when all participants share one transport
// whose Turn advances the owner, like the sandbox.
func WithSeats(seats map[int]transport.Transport) Option {
	return func(r *Runner) { r.seats = seats }
}

// Runner is the only writer of the scheduler.
type Runner struct {
	gm        *gamemap.Map
	sched     *scheduler.Scheduler
	source    transport.StateSource
	tr        transport.Transport
	agents    []*player.Agent
	local     map[int]bool
	seats     map[int]transport.Transport
	match     *match.Context
	events    *dispatcher.Dispatcher
	logger    *slog.Logger
	observers []Observer
}

// New creates a runner. tr ends the turns of participants that are not
// driven by one of agents, unless tr is itself a seat.
func New(gm *gamemap.Map, sched *scheduler.Scheduler, source transport.StateSource, tr transport.Transport, agents []*player.Agent, opts ...Option) *Runner {
	r := &Runner{
		gm:     gm,
		sched:  sched,
		source: source,
		tr:     tr,
		agents: agents,
		local:  make(map[int]bool, len(agents)),
		match:  match.NewContext(),
		logger: slog.Default(),
	}
	for _, a := range agents {
		r.local[a.ID()] = true
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run plays the match to the end. Agents and the control loop share one
// errgroup; the first failure cancels the rest.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, a := range r.agents {
		g.Go(func() error {
			if err := a.Run(gctx, r.sched); err != nil {
				return fmt.Errorf("agent %d: %w", a.ID(), err)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer r.sched.Close()
		return r.loop(gctx)
	})
	return g.Wait()
}

func (r *Runner) loop(ctx context.Context) error {
	for {
		state, err := r.source.Next(ctx)
		if err != nil {
			return fmt.Errorf("next snapshot: %w", err)
		}
		if err := r.Reconcile(state); err != nil {
			return err
		}
		if state.Finished {
			r.finish(state)
			return nil
		}

		owner := state.CurrentPlayerIdx
		r.passSeats(owner)
		if !r.local[owner] {
			r.logger.Debug("remote turn", "owner", owner, "game_turn", state.CurrentTurn)
			if !r.isSeat(r.tr) {
				r.tr.Turn()
			}
			continue
		}

		turn := r.sched.Advance(owner)
		r.match.SetTurn(turn, state.CurrentTurn)
		if err := r.sched.WaitIdle(ctx, turn); err != nil {
			return fmt.Errorf("turn %d: %w", turn.Number, err)
		}
	}
}

// passSeats ends the turn on every seat but the owner's, in id order.
func (r *Runner) passSeats(owner int) {
	ids := make([]int, 0, len(r.seats))
	for id := range r.seats {
		if id != owner {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	for _, id := range ids {
		r.seats[id].Turn()
	}
}

func (r *Runner) isSeat(tr transport.Transport) bool {
	for _, s := range r.seats {
		if s == tr {
			return true
		}
	}
	return false
}

// Reconcile merges a snapshot into the map. It refuses to run while an
// agent holds the gate.
func (r *Runner) Reconcile(state core.GameState) error {
	if r.sched.Busy() {
		return ErrTurnHeld
	}
	start := time.Now()
	changed, err := r.gm.UpdateMap(state)
	if err != nil {
		return fmt.Errorf("reconcile game turn %d: %w", state.CurrentTurn, err)
	}
	elapsed := time.Since(start)

	turn := r.sched.Current()
	r.logger.Debug("reconciled", "game_turn", state.CurrentTurn, "changed", changed, "duration", elapsed)

	r.events.Publish(dispatcher.Event{
		Kind:     EventReconcile,
		Turn:     turn.Number,
		PlayerID: state.CurrentPlayerIdx,
		Payload: core.TurnRecord{
			Turn:       turn.Number,
			GameTurn:   state.CurrentTurn,
			Owner:      state.CurrentPlayerIdx,
			Reconciled: changed,
			Duration:   elapsed,
			Time:       start,
		},
	})
	r.events.Publish(dispatcher.Event{
		Kind:    EventTankState,
		Turn:    turn.Number,
		Payload: r.tankStates(turn.Number, state.CurrentTurn, start),
	})

	for _, o := range r.observers {
		if err := o.Observe(state.CurrentTurn, r.gm); err != nil {
			r.logger.Warn("observer failed", "game_turn", state.CurrentTurn, "error", err)
		}
	}
	return nil
}

func (r *Runner) tankStates(turn uint64, gameTurn int, now time.Time) []core.TankState {
	tanks := r.gm.Tanks()
	ids := make([]int, 0, len(tanks))
	for id := range tanks {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]core.TankState, 0, len(ids))
	for _, id := range ids {
		t := tanks[id]
		out = append(out, core.TankState{
			Turn:          turn,
			GameTurn:      gameTurn,
			VehicleID:     id,
			PlayerID:      t.PlayerID(),
			Position:      t.Position(),
			Health:        t.HP(),
			CapturePoints: t.CP(),
			Time:          now,
		})
	}
	return out
}

func (r *Runner) finish(state core.GameState) {
	r.match.Finish()
	attrs := []any{"game_turn", state.CurrentTurn}
	if state.Winner != nil {
		attrs = append(attrs, "winner", *state.Winner)
	}
	r.logger.Info("match finished", attrs...)
	r.events.Publish(dispatcher.Event{
		Kind:     EventMatchEnd,
		Turn:     r.sched.Current().Number,
		PlayerID: -1,
		Payload:  state,
	})
}
