package player

import (
	"context"
	"errors"
	"fmt"

	"github.com/hexforge/tankbot/internal/gamemap"
	"github.com/hexforge/tankbot/internal/roster"
	"github.com/hexforge/tankbot/internal/scheduler"
	"github.com/hexforge/tankbot/internal/tactics"
	"github.com/hexforge/tankbot/internal/transport"
	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/hex"
)

var (
	ErrNotOwned      = errors.New("tank not owned by player")
	ErrUnknownAction = errors.New("unknown action kind")
	ErrOutOfReach    = errors.New("destination beyond tank speed")
)

// Order is one action requested by whoever drives an External participant.
type Order struct {
	Kind      core.ActionKind
	VehicleID int
	Target    hex.Hex
}

// External plays whatever batch of orders arrives on its channel for the
// turn. Invalid orders are logged and skipped; the turn still ends.
type External struct {
	actor
	orders <-chan []Order
}

func NewExternal(gm *gamemap.Map, self *roster.Player, tr transport.Transport, orders <-chan []Order, opts ...Option) *External {
	return &External{actor: newActor(gm, self, tr, opts), orders: orders}
}

func (e *External) PlayTurn(ctx context.Context, turn scheduler.Turn) error {
	e.gm.ResetShootActions(e.self.ID)

	var batch []Order
	select {
	case batch = <-e.orders:
	case <-ctx.Done():
		return ctx.Err()
	}

	for _, o := range batch {
		if err := e.apply(ctx, turn, o); err != nil {
			e.logger.Warn("order skipped", "kind", o.Kind, "tank", o.VehicleID, "error", err)
		}
	}

	e.endTurn(ctx, turn)
	return nil
}

func (e *External) apply(ctx context.Context, turn scheduler.Turn, o Order) error {
	t, ok := e.gm.Tank(o.VehicleID)
	if !ok {
		return fmt.Errorf("tank %d: %w", o.VehicleID, gamemap.ErrUnknownTank)
	}
	if t.PlayerID() != e.self.ID {
		return fmt.Errorf("tank %d: %w", o.VehicleID, ErrNotOwned)
	}
	if t.Destroyed() {
		return nil
	}

	switch o.Kind {
	case core.ActionShoot:
		e.shoot(ctx, turn, t, o.Target, tactics.Affected(e.gm, t, o.Target))
		return nil
	case core.ActionMove:
		if e.gm.IsInBase(t.Position()) {
			return nil
		}
		if d := hex.Distance(t.Position(), o.Target); d > t.SP() {
			return fmt.Errorf("tank %d to %s (%d hexes, speed %d): %w", t.ID(), o.Target, d, t.SP(), ErrOutOfReach)
		}
		return e.move(ctx, turn, t, o.Target)
	case core.ActionTurnEnd:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, o.Kind)
	}
}
