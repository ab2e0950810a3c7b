// Package player is the decision engine: strategies that play one turn for
// a participant, and the Agent that runs a strategy against the scheduler.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/hexforge/tankbot/internal/scheduler"
)

// Strategy plays exactly one turn. It must end the turn on the transport
// before returning, even when it has nothing to do.
type Strategy interface {
	PlayTurn(ctx context.Context, turn scheduler.Turn) error
}

// State is where an agent is in its turn cycle.
type State int32

const (
	Idle State = iota
	Acting
	Submitted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Acting:
		return "acting"
	case Submitted:
		return "submitted"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Agent binds a participant id to a strategy and the turn gate.
type Agent struct {
	id       int
	name     string
	strategy Strategy
	logger   *slog.Logger
	state    atomic.Int32
}

func NewAgent(id int, name string, s Strategy, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		id:       id,
		name:     name,
		strategy: s,
		logger:   logger.With("player", id, "name", name),
	}
}

func (a *Agent) ID() int      { return a.id }
func (a *Agent) Name() string { return a.name }
func (a *Agent) State() State { return State(a.state.Load()) }

// Run plays every turn the scheduler hands to this agent. It returns nil
// when the scheduler closes and ctx.Err() when ctx is cancelled.
func (a *Agent) Run(ctx context.Context, sched *scheduler.Scheduler) error {
	for {
		turn, err := sched.Acquire(ctx, a.id)
		if errors.Is(err, scheduler.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}

		a.state.Store(int32(Acting))
		err = a.strategy.PlayTurn(ctx, turn)
		a.state.Store(int32(Submitted))
		sched.Release(turn)
		a.state.Store(int32(Idle))

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Error("turn failed", "turn", turn.Number, "error", err)
		}
	}
}
