// Package tactics answers the geometry questions the decision engine asks:
// which target to fire at and where to move.
package tactics

import (
	"github.com/hexforge/tankbot/internal/tank"
	"github.com/hexforge/tankbot/internal/terrain"
	"github.com/hexforge/tankbot/pkg/hex"
)

// Board is the read-only view of the map a planner works on.
type Board interface {
	Radius() int
	InBounds(h hex.Hex) bool
	Terrain(h hex.Hex) (terrain.Kind, bool)
	Occupant(h hex.Hex) *tank.Tank
	Tanks() map[int]*tank.Tank
	Base() []hex.Hex
	CatapultCharge(h hex.Hex) int
	PlayerIDs() []int
	// AttackedBy lists the players that player shot during its last turn.
	AttackedBy(player int) []int
}

// Shot is a chosen attack: the target hex sent to the server and every tank
// the shot damages.
type Shot struct {
	Target   hex.Hex
	Affected []*tank.Tank
}

// Planner selects attacks and destinations for one tank.
type Planner interface {
	BestShot(b Board, t *tank.Tank) (Shot, bool)
	Destination(b Board, t *tank.Tank) (hex.Hex, bool)
}

// CanAttack applies the neutrality rule: attacker may fire at victim if the
// victim shot the attacker last turn, or if no third player shot the victim.
func CanAttack(b Board, attacker, victim int) bool {
	if attacker == victim {
		return false
	}
	for _, p := range b.AttackedBy(victim) {
		if p == attacker {
			return true
		}
	}
	for _, other := range b.PlayerIDs() {
		if other == attacker || other == victim {
			continue
		}
		for _, p := range b.AttackedBy(other) {
			if p == victim {
				return false
			}
		}
	}
	return true
}

// Affected lists the tanks a shot of t at target would damage. Line
// shooters hit every tank on the axis through target up to their range,
// stopping at obstacles; everyone else hits the occupant of target. Own
// tanks and destroyed tanks are never affected.
func Affected(b Board, t *tank.Tank, target hex.Hex) []*tank.Tank {
	hit := func(e *tank.Tank) bool {
		return e != nil && !e.Destroyed() && e.PlayerID() != t.PlayerID()
	}
	if !t.FiresInLine() {
		if e := b.Occupant(target); hit(e) {
			return []*tank.Tank{e}
		}
		return nil
	}
	dir, ok := t.Position().DirectionTo(target)
	if !ok {
		return nil
	}
	var out []*tank.Tank
	for _, h := range t.Position().Line(dir, t.MaxRange()) {
		kind, ok := b.Terrain(h)
		if !ok || kind.BlocksFire() {
			break
		}
		if e := b.Occupant(h); hit(e) {
			out = append(out, e)
		}
	}
	return out
}
