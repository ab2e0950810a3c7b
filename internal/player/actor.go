package player

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/hexforge/tankbot/internal/dispatcher"
	"github.com/hexforge/tankbot/internal/gamemap"
	"github.com/hexforge/tankbot/internal/roster"
	"github.com/hexforge/tankbot/internal/scheduler"
	"github.com/hexforge/tankbot/internal/tank"
	"github.com/hexforge/tankbot/internal/transport"
	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/hex"
)

const instrumentationName = "github.com/hexforge/tankbot/internal/player"

// Option configures a strategy.
type Option func(*actor)

// WithEvents publishes every action to d.
func WithEvents(d *dispatcher.Dispatcher) Option {
	return func(a *actor) { a.events = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *actor) { a.logger = l }
}

// actor applies a participant's actions: locally first, then on the
// transport. Strategies differ only in how they choose.
type actor struct {
	gm      *gamemap.Map
	self    *roster.Player
	tr      transport.Transport
	events  *dispatcher.Dispatcher
	logger  *slog.Logger
	actions metric.Int64Counter
	attrs   metric.MeasurementOption
}

func newActor(gm *gamemap.Map, self *roster.Player, tr transport.Transport, opts []Option) actor {
	a := actor{gm: gm, self: self, tr: tr, logger: slog.Default()}
	for _, opt := range opts {
		opt(&a)
	}
	a.logger = a.logger.With("player", self.ID)
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"player.actions",
		metric.WithDescription("Actions submitted by local participants"),
	)
	if err != nil {
		a.logger.Warn("player.actions counter unavailable", "error", err)
		counter = noop.Int64Counter{}
	}
	a.actions = counter
	a.attrs = metric.WithAttributes(attribute.Int("player", self.ID))
	return a
}

func (a *actor) shoot(ctx context.Context, turn scheduler.Turn, t *tank.Tank, target hex.Hex, affected []*tank.Tank) {
	ids := make([]int, 0, len(affected))
	for _, victim := range affected {
		a.gm.LocalShoot(t, victim)
		ids = append(ids, victim.ID())
	}
	a.tr.Shoot(core.ShootAction{VehicleID: t.ID(), Target: target})
	t.SetBonusRange(0)

	a.logger.Debug("shoot", "tank", t.ID(), "target", target, "affected", ids)
	a.record(ctx, turn, core.ActionShoot, t.ID(), &target, ids)
}

func (a *actor) move(ctx context.Context, turn scheduler.Turn, t *tank.Tank, dest hex.Hex) error {
	if err := a.gm.CanEnter(t, dest); err != nil {
		return err
	}
	a.gm.ApplyTerrain(t, dest)
	if err := a.gm.LocalMove(t, dest); err != nil {
		return err
	}
	a.tr.Move(core.MoveAction{VehicleID: t.ID(), Target: dest})

	a.logger.Debug("move", "tank", t.ID(), "dest", dest)
	a.record(ctx, turn, core.ActionMove, t.ID(), &dest, nil)
	return nil
}

func (a *actor) endTurn(ctx context.Context, turn scheduler.Turn) {
	a.tr.Turn()
	a.record(ctx, turn, core.ActionTurnEnd, 0, nil, nil)
}

func (a *actor) record(ctx context.Context, turn scheduler.Turn, kind core.ActionKind, vehicle int, target *hex.Hex, affected []int) {
	a.actions.Add(ctx, 1, a.attrs, metric.WithAttributes(attribute.String("kind", string(kind))))
	a.events.Publish(dispatcher.Event{
		Kind:     string(kind),
		Turn:     turn.Number,
		PlayerID: a.self.ID,
		Payload: core.ActionRecord{
			Turn:      turn.Number,
			PlayerID:  a.self.ID,
			Kind:      kind,
			VehicleID: vehicle,
			Target:    target,
			Affected:  affected,
			Time:      time.Now(),
		},
	})
}
