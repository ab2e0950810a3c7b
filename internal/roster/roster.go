// Package roster tracks participants and the tanks each one owns.
package roster

import (
	"slices"

	"github.com/hexforge/tankbot/internal/tank"
	"github.com/hexforge/tankbot/pkg/core"
)

// palette is indexed by player slot; the spawn colour is a lighter shade.
var palette = []tank.Colors{
	{Tank: "#e6194b", Spawn: "#f5a3b3"},
	{Tank: "#3cb44b", Spawn: "#a8e0af"},
	{Tank: "#4363d8", Spawn: "#a9b8ef"},
	{Tank: "#f58231", Spawn: "#fbcaa5"},
	{Tank: "#911eb4", Spawn: "#d3a4e1"},
}

// ColorsFor returns the display colours of the player in slot i.
func ColorsFor(slot int) tank.Colors {
	if slot < 0 {
		slot = -slot
	}
	return palette[slot%len(palette)]
}

// moveOrder is the order in which the server resolves classes within a turn.
var moveOrder = map[tank.Class]int{
	tank.SPG:        0,
	tank.LightTank:  1,
	tank.HeavyTank:  2,
	tank.MediumTank: 3,
	tank.ATSPG:      4,
}

// Player is one participant of the match.
type Player struct {
	ID         int
	Name       string
	IsObserver bool
	Colors     tank.Colors

	tanks []*tank.Tank
}

// NewPlayer creates a participant with the colours of the given slot.
func NewPlayer(id int, name string, observer bool, slot int) *Player {
	return &Player{
		ID:         id,
		Name:       name,
		IsObserver: observer,
		Colors:     ColorsFor(slot),
	}
}

// AddTank gives ownership of t to the player.
func (p *Player) AddTank(t *tank.Tank) {
	p.tanks = append(p.tanks, t)
}

// Tanks returns the owned tanks in iteration order.
func (p *Player) Tanks() []*tank.Tank {
	return p.tanks
}

// Reorder sorts owned tanks by class move order, then by id.
func (p *Player) Reorder() {
	slices.SortStableFunc(p.tanks, func(a, b *tank.Tank) int {
		if d := moveOrder[a.Class()] - moveOrder[b.Class()]; d != 0 {
			return d
		}
		return a.ID() - b.ID()
	})
}

// Roster is the set of participants keyed by id, in join order.
type Roster struct {
	order   []int
	players map[int]*Player
}

// New creates an empty roster.
func New() *Roster {
	return &Roster{players: make(map[int]*Player)}
}

// Add registers p; a second registration of the same id replaces the first.
func (r *Roster) Add(p *Player) {
	if _, ok := r.players[p.ID]; !ok {
		r.order = append(r.order, p.ID)
	}
	r.players[p.ID] = p
}

// Get looks a player up by id.
func (r *Roster) Get(id int) (*Player, bool) {
	p, ok := r.players[id]
	return p, ok
}

// All returns every player in join order.
func (r *Roster) All() []*Player {
	out := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.players[id])
	}
	return out
}

// Active returns the non-observer players in join order.
func (r *Roster) Active() []*Player {
	out := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		if p := r.players[id]; !p.IsObserver {
			out = append(out, p)
		}
	}
	return out
}

// FromState builds a roster from the players and observers of a snapshot.
// Colour slots follow the snapshot's player order.
func FromState(state core.GameState) *Roster {
	r := New()
	for i, info := range state.Players {
		r.Add(NewPlayer(info.Idx, info.Name, info.IsObserver, i))
	}
	for i, info := range state.Observers {
		r.Add(NewPlayer(info.Idx, info.Name, true, len(state.Players)+i))
	}
	return r
}
