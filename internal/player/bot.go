package player

import (
	"context"

	"github.com/hexforge/tankbot/internal/gamemap"
	"github.com/hexforge/tankbot/internal/roster"
	"github.com/hexforge/tankbot/internal/scheduler"
	"github.com/hexforge/tankbot/internal/transport"
)

// Bot is the automated participant. Each owned tank, in roster order,
// attacks when the planner finds a target and otherwise moves, unless it
// already sits on the base.
type Bot struct {
	actor
}

func NewBot(gm *gamemap.Map, self *roster.Player, tr transport.Transport, opts ...Option) *Bot {
	return &Bot{actor: newActor(gm, self, tr, opts)}
}

func (b *Bot) PlayTurn(ctx context.Context, turn scheduler.Turn) error {
	b.gm.ResetShootActions(b.self.ID)

	for _, t := range b.self.Tanks() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.Destroyed() {
			continue
		}
		if shot, ok := b.gm.Shoot(t); ok {
			b.shoot(ctx, turn, t, shot.Target, shot.Affected)
			continue
		}
		if b.gm.IsInBase(t.Position()) {
			continue
		}
		dest, ok := b.gm.Move(t)
		if !ok {
			continue
		}
		if err := b.move(ctx, turn, t, dest); err != nil {
			b.logger.Error("local move rejected", "tank", t.ID(), "dest", dest, "error", err)
		}
	}

	b.endTurn(ctx, turn)
	return nil
}
