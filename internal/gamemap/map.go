// Package gamemap is the local mirror of the authoritative match state: the
// grid, terrain, catapult charges, the tank registry and the shot ledger.
//
// Map takes no locks. Exactly one agent mutates it at a time, which the turn
// scheduler guarantees, and reconciliation runs strictly between turns.
package gamemap

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/hexforge/tankbot/internal/roster"
	"github.com/hexforge/tankbot/internal/tactics"
	"github.com/hexforge/tankbot/internal/tank"
	"github.com/hexforge/tankbot/internal/terrain"
	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/hex"
)

var (
	ErrUnknownTank    = errors.New("unknown tank")
	ErrUnknownPlayer  = errors.New("unknown player")
	ErrOutOfBounds    = errors.New("hex outside the map")
	ErrOccupied       = errors.New("hex held by another tank")
	ErrImpassable     = errors.New("hex is impassable")
	ErrUnknownTerrain = terrain.ErrUnknown
)

// Cell is one grid position. Tank is nil when the cell is free.
type Cell struct {
	Terrain terrain.Kind
	Tank    *tank.Tank
}

// Shot is one ledger entry: a tank of the ledger's owner hit TargetTankID.
type Shot struct {
	TankID         int
	TargetTankID   int
	TargetPlayerID int
}

// Map is the grid and everything placed on it.
type Map struct {
	name   string
	radius int

	hexes     []hex.Hex
	cells     map[hex.Hex]*Cell
	tanks     map[int]*tank.Tank
	positions map[int]hex.Hex

	base        []hex.Hex
	obstacles   []hex.Hex
	spawns      []hex.Hex
	lightRepair []hex.Hex
	heavyRepair []hex.Hex
	catapults   map[hex.Hex]int

	shots   map[int][]Shot
	players []*roster.Player

	planner tactics.Planner
}

// Option configures Build.
type Option func(*Map)

// WithPlanner replaces the default greedy planner.
func WithPlanner(p tactics.Planner) Option {
	return func(m *Map) {
		m.planner = p
	}
}

// Build creates the map from the static layout and the first snapshot.
// Every vehicle's owner must be in players.
func Build(layout core.GameMap, state core.GameState, players *roster.Roster, opts ...Option) (*Map, error) {
	radius := layout.Radius()
	m := &Map{
		name:      layout.Name,
		radius:    radius,
		hexes:     hex.Spiral(hex.Origin, radius),
		cells:     make(map[hex.Hex]*Cell),
		tanks:     make(map[int]*tank.Tank),
		positions: make(map[int]hex.Hex),
		catapults: make(map[hex.Hex]int),
		shots:     make(map[int][]Shot),
		planner:   tactics.Greedy{},
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, h := range m.hexes {
		m.cells[h] = &Cell{Terrain: terrain.Empty}
	}

	m.players = players.Active()
	for _, p := range m.players {
		m.shots[p.ID] = nil
	}

	if err := m.placeTanks(state, players); err != nil {
		return nil, err
	}
	for _, p := range m.players {
		p.Reorder()
	}

	if err := m.classify(layout.Content); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Map) placeTanks(state core.GameState, players *roster.Roster) error {
	ids, err := vehicleIDs(state)
	if err != nil {
		return err
	}
	for _, id := range ids {
		v := state.Vehicles[core.VehicleKey(id)]
		owner, ok := players.Get(v.PlayerID)
		if !ok {
			return fmt.Errorf("vehicle %d: %w %d", id, ErrUnknownPlayer, v.PlayerID)
		}
		cell, ok := m.cells[v.Position]
		if !ok {
			return fmt.Errorf("vehicle %d position %s: %w", id, v.Position, ErrOutOfBounds)
		}
		if !m.InBounds(v.SpawnPosition) {
			return fmt.Errorf("vehicle %d spawn %s: %w", id, v.SpawnPosition, ErrOutOfBounds)
		}
		t, err := tank.New(id, v, owner.Colors)
		if err != nil {
			return err
		}
		m.tanks[id] = t
		m.positions[id] = t.Position()
		owner.AddTank(t)
		if !t.Destroyed() {
			cell.Tank = t
		}
		m.spawns = append(m.spawns, v.SpawnPosition)
	}
	return nil
}

func (m *Map) classify(content map[string][]hex.Hex) error {
	tags := make([]string, 0, len(content))
	for tag := range content {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	for _, tag := range tags {
		kind, err := terrain.Parse(tag)
		if err != nil {
			return err
		}
		for _, h := range content[tag] {
			cell, ok := m.cells[h]
			if !ok {
				return fmt.Errorf("%s %s: %w", tag, h, ErrOutOfBounds)
			}
			cell.Terrain = kind
			switch kind {
			case terrain.Base:
				m.base = append(m.base, h)
			case terrain.Obstacle:
				m.obstacles = append(m.obstacles, h)
			case terrain.LightRepair:
				m.lightRepair = append(m.lightRepair, h)
			case terrain.HeavyRepair:
				m.heavyRepair = append(m.heavyRepair, h)
			case terrain.Catapult:
				m.catapults[h] = terrain.CatapultCharges
			case terrain.Empty:
			}
		}
	}
	return nil
}

// UpdateMap reconciles local tanks against a snapshot. Server values win on
// every mismatch. It returns how many fields were overwritten, so a repeated
// snapshot returns 0. The snapshot is validated before anything changes.
func (m *Map) UpdateMap(state core.GameState) (int, error) {
	ids, err := vehicleIDs(state)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if _, ok := m.tanks[id]; !ok {
			return 0, fmt.Errorf("snapshot vehicle %d: %w", id, ErrUnknownTank)
		}
		if pos := state.Vehicles[core.VehicleKey(id)].Position; !m.InBounds(pos) {
			return 0, fmt.Errorf("snapshot vehicle %d position %s: %w", id, pos, ErrOutOfBounds)
		}
	}

	changed := 0
	var moved []*tank.Tank
	for _, id := range ids {
		t := m.tanks[id]
		v := state.Vehicles[core.VehicleKey(id)]
		if v.Position != t.Position() {
			m.vacate(t)
			m.positions[id] = v.Position
			t.UpdatePosition(v.Position)
			moved = append(moved, t)
			changed++
		}
		if v.Health != t.HP() {
			t.UpdateHP(v.Health)
			changed++
		}
		if v.CapturePoints != t.CP() {
			t.UpdateCP(v.CapturePoints)
			changed++
		}
	}

	// Occupancy is settled after every position is known so that tanks
	// swapping cells in one snapshot do not evict each other.
	for _, t := range moved {
		m.occupy(t)
	}
	for _, id := range ids {
		t := m.tanks[id]
		if t.Destroyed() {
			m.vacate(t)
		} else if m.cells[t.Position()].Tank != t {
			m.occupy(t)
		}
	}
	return changed, nil
}

func (m *Map) vacate(t *tank.Tank) {
	if c, ok := m.cells[t.Position()]; ok && c.Tank == t {
		c.Tank = nil
	}
}

func (m *Map) occupy(t *tank.Tank) {
	if t.Destroyed() {
		return
	}
	if c, ok := m.cells[t.Position()]; ok {
		c.Tank = t
	}
}

func vehicleIDs(state core.GameState) ([]int, error) {
	ids := make([]int, 0, len(state.Vehicles))
	for key := range state.Vehicles {
		id, err := core.VehicleID(key)
		if err != nil {
			return nil, fmt.Errorf("vehicle key %q: %w", key, err)
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
