package gamemap

import (
	"fmt"

	"github.com/hexforge/tankbot/internal/tactics"
	"github.com/hexforge/tankbot/internal/tank"
	"github.com/hexforge/tankbot/internal/terrain"
	"github.com/hexforge/tankbot/pkg/hex"
)

// Shoot asks the planner for the best attack of t.
func (m *Map) Shoot(t *tank.Tank) (tactics.Shot, bool) {
	return m.planner.BestShot(m, t)
}

// Move asks the planner for a destination within t's movement budget.
func (m *Map) Move(t *tank.Tank) (hex.Hex, bool) {
	return m.planner.Destination(m, t)
}

// IsInBase reports whether h is a base cell.
func (m *Map) IsInBase(h hex.Hex) bool {
	return m.kind(h) == terrain.Base
}

// CanEnter reports why t may not stand on dest, or nil when it may. A cell
// held by t itself is enterable.
func (m *Map) CanEnter(t *tank.Tank, dest hex.Hex) error {
	cell, ok := m.cells[dest]
	switch {
	case !ok:
		return fmt.Errorf("move tank %d to %s: %w", t.ID(), dest, ErrOutOfBounds)
	case !cell.Terrain.Passable():
		return fmt.Errorf("move tank %d to %s: %w", t.ID(), dest, ErrImpassable)
	case cell.Tank != nil && cell.Tank != t:
		return fmt.Errorf("move tank %d to %s held by tank %d: %w", t.ID(), dest, cell.Tank.ID(), ErrOccupied)
	}
	return nil
}

// LocalMove moves t to dest ahead of server confirmation. The grid and the
// position index are left untouched when dest cannot be entered.
func (m *Map) LocalMove(t *tank.Tank, dest hex.Hex) error {
	if err := m.CanEnter(t, dest); err != nil {
		return err
	}
	cell := m.cells[dest]
	m.vacate(t)
	t.UpdatePosition(dest)
	m.positions[t.ID()] = dest
	if !t.Destroyed() {
		cell.Tank = t
	}
	return nil
}

// LocalShoot applies attacker's damage to target and records the shot in the
// attacker's ledger. A destroyed target frees its cell but stays registered
// until reconciliation reports where the server put it.
func (m *Map) LocalShoot(attacker, target *tank.Tank) {
	if target.TakeDamage(attacker.Damage()) {
		m.vacate(target)
	}
	m.shots[attacker.PlayerID()] = append(m.shots[attacker.PlayerID()], Shot{
		TankID:         attacker.ID(),
		TargetTankID:   target.ID(),
		TargetPlayerID: target.PlayerID(),
	})
}

// ResetShootActions clears the ledger of player. Called once at the start of
// that player's turn.
func (m *Map) ResetShootActions(player int) {
	m.shots[player] = nil
}
