package gamemap

import (
	"maps"
	"slices"

	"github.com/hexforge/tankbot/internal/roster"
	"github.com/hexforge/tankbot/internal/tactics"
	"github.com/hexforge/tankbot/internal/tank"
	"github.com/hexforge/tankbot/internal/terrain"
	"github.com/hexforge/tankbot/pkg/hex"
)

var _ tactics.Board = (*Map)(nil)

func (m *Map) Name() string { return m.name }
func (m *Map) Radius() int  { return m.radius }

// Hexes returns every grid hex in spiral order.
func (m *Map) Hexes() []hex.Hex { return slices.Clone(m.hexes) }

func (m *Map) InBounds(h hex.Hex) bool {
	_, ok := m.cells[h]
	return ok
}

// Cell returns a copy of the cell at h.
func (m *Map) Cell(h hex.Hex) (Cell, bool) {
	c, ok := m.cells[h]
	if !ok {
		return Cell{}, false
	}
	return *c, true
}

func (m *Map) Terrain(h hex.Hex) (terrain.Kind, bool) {
	c, ok := m.cells[h]
	if !ok {
		return terrain.Empty, false
	}
	return c.Terrain, true
}

func (m *Map) Occupant(h hex.Hex) *tank.Tank {
	if c, ok := m.cells[h]; ok {
		return c.Tank
	}
	return nil
}

func (m *Map) Base() []hex.Hex        { return slices.Clone(m.base) }
func (m *Map) Obstacles() []hex.Hex   { return slices.Clone(m.obstacles) }
func (m *Map) Spawns() []hex.Hex      { return slices.Clone(m.spawns) }
func (m *Map) LightRepair() []hex.Hex { return slices.Clone(m.lightRepair) }
func (m *Map) HeavyRepair() []hex.Hex { return slices.Clone(m.heavyRepair) }

// CatapultCharges returns a copy of the remaining charges per catapult.
func (m *Map) CatapultCharges() map[hex.Hex]int { return maps.Clone(m.catapults) }

func (m *Map) CatapultCharge(h hex.Hex) int { return m.catapults[h] }

// Tanks returns the registry. The map is a copy; the tanks are shared.
func (m *Map) Tanks() map[int]*tank.Tank { return maps.Clone(m.tanks) }

func (m *Map) Tank(id int) (*tank.Tank, bool) {
	t, ok := m.tanks[id]
	return t, ok
}

// TankPositions returns a copy of the position index.
func (m *Map) TankPositions() map[int]hex.Hex { return maps.Clone(m.positions) }

// Players returns the non-observer participants.
func (m *Map) Players() []*roster.Player { return slices.Clone(m.players) }

func (m *Map) PlayerIDs() []int {
	ids := make([]int, 0, len(m.players))
	for _, p := range m.players {
		ids = append(ids, p.ID)
	}
	return ids
}

// ShootActions returns a copy of player's ledger.
func (m *Map) ShootActions(player int) []Shot { return slices.Clone(m.shots[player]) }

func (m *Map) AttackedBy(player int) []int {
	var out []int
	for _, s := range m.shots[player] {
		if !slices.Contains(out, s.TargetPlayerID) {
			out = append(out, s.TargetPlayerID)
		}
	}
	return out
}
