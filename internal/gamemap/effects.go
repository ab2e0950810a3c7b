package gamemap

import (
	"github.com/hexforge/tankbot/internal/tank"
	"github.com/hexforge/tankbot/internal/terrain"
	"github.com/hexforge/tankbot/pkg/hex"
)

// The terrain checks run against the destination before the move is sent,
// so the engine sees the bonus or the heal within the same turn. A check that
// does not apply is a silent no-op.

// CatapultCheck grants a one-shot +1 range and spends one charge when dest
// is a catapult with charges left.
func (m *Map) CatapultCheck(t *tank.Tank, dest hex.Hex) {
	if m.kind(dest) != terrain.Catapult {
		return
	}
	if m.catapults[dest] <= 0 {
		return
	}
	t.SetBonusRange(1)
	m.catapults[dest]--
}

// HeavyRepairCheck fully heals heavy tanks and AT-SPGs on a heavy repair cell.
func (m *Map) HeavyRepairCheck(t *tank.Tank, dest hex.Hex) {
	if m.kind(dest) != terrain.HeavyRepair {
		return
	}
	switch t.Class() {
	case tank.HeavyTank, tank.ATSPG:
		t.Repair()
	case tank.SPG, tank.LightTank, tank.MediumTank:
	}
}

// LightRepairCheck fully heals medium tanks on a light repair cell.
func (m *Map) LightRepairCheck(t *tank.Tank, dest hex.Hex) {
	if m.kind(dest) != terrain.LightRepair {
		return
	}
	switch t.Class() {
	case tank.MediumTank:
		t.Repair()
	case tank.SPG, tank.LightTank, tank.HeavyTank, tank.ATSPG:
	}
}

// ApplyTerrain runs every terrain check for a move to dest.
func (m *Map) ApplyTerrain(t *tank.Tank, dest hex.Hex) {
	m.CatapultCheck(t, dest)
	m.HeavyRepairCheck(t, dest)
	m.LightRepairCheck(t, dest)
}

func (m *Map) kind(h hex.Hex) terrain.Kind {
	if c, ok := m.cells[h]; ok {
		return c.Terrain
	}
	return terrain.Empty
}
