package tactics

import (
	"math"
	"slices"

	"github.com/hexforge/tankbot/internal/tank"
	"github.com/hexforge/tankbot/internal/terrain"
	"github.com/hexforge/tankbot/pkg/hex"
)

// Greedy fires at the most valuable legal target and otherwise walks toward
// the nearest free base hex.
type Greedy struct{}

var _ Planner = Greedy{}

type shotScore struct {
	kills    int
	affected int
	cp       int
	hp       int
	id       int
}

func (s shotScore) better(o shotScore) bool {
	if s.kills != o.kills {
		return s.kills > o.kills
	}
	if s.affected != o.affected {
		return s.affected > o.affected
	}
	if s.cp != o.cp {
		return s.cp > o.cp
	}
	if s.hp != o.hp {
		return s.hp < o.hp
	}
	return s.id < o.id
}

// BestShot implements Planner.
func (g Greedy) BestShot(b Board, t *tank.Tank) (Shot, bool) {
	if t.Destroyed() {
		return Shot{}, false
	}
	if t.FiresInLine() {
		return g.lineShot(b, t)
	}

	var (
		best  Shot
		score shotScore
		found bool
	)
	for _, e := range sortedTanks(b) {
		if !hittable(b, t, e) {
			continue
		}
		if !t.InRange(hex.Distance(t.Position(), e.Position())) {
			continue
		}
		s := shotScore{affected: 1, cp: e.CP(), hp: e.HP(), id: e.ID()}
		if e.HP() <= t.Damage() {
			s.kills = 1
		}
		if !found || s.better(score) {
			best = Shot{Target: e.Position(), Affected: []*tank.Tank{e}}
			score = s
			found = true
		}
	}
	return best, found
}

// lineShot scans the six axes; fire stops at obstacles and the map edge.
func (g Greedy) lineShot(b Board, t *tank.Tank) (Shot, bool) {
	var (
		best  Shot
		score shotScore
		found bool
	)
dirs:
	for dir := 0; dir < 6; dir++ {
		var affected []*tank.Tank
		s := shotScore{id: dir}
		for _, h := range t.Position().Line(dir, t.MaxRange()) {
			kind, ok := b.Terrain(h)
			if !ok || kind.BlocksFire() {
				break
			}
			e := b.Occupant(h)
			if e == nil || e.Destroyed() {
				continue
			}
			if e.PlayerID() == t.PlayerID() || !CanAttack(b, t.PlayerID(), e.PlayerID()) {
				continue dirs
			}
			affected = append(affected, e)
			s.affected++
			s.cp += e.CP()
			if e.HP() <= t.Damage() {
				s.kills++
			}
		}
		if len(affected) == 0 {
			continue
		}
		if !found || s.better(score) {
			best = Shot{Target: t.Position().Neighbor(dir), Affected: affected}
			score = s
			found = true
		}
	}
	return best, found
}

// Destination implements Planner. It returns false when no reachable hex is
// an improvement over staying put.
func (g Greedy) Destination(b Board, t *tank.Tank) (hex.Hex, bool) {
	goals := freeBase(b, t)
	if len(goals) == 0 || t.Destroyed() {
		return hex.Hex{}, false
	}
	start := t.Position()
	current := nearest(start, goals)

	best, bestDist, bestBonus := start, current, 0
	for _, h := range reachable(b, start, t.SP()) {
		d := nearest(h, goals)
		bonus := cellBonus(b, t, h)
		if d < bestDist || (d == bestDist && bonus > bestBonus) {
			best, bestDist, bestBonus = h, d, bonus
		}
	}
	if best == start {
		return hex.Hex{}, false
	}
	return best, true
}

func hittable(b Board, attacker, e *tank.Tank) bool {
	return e.PlayerID() != attacker.PlayerID() && !e.Destroyed() && CanAttack(b, attacker.PlayerID(), e.PlayerID())
}

// cellBonus ranks equally distant cells: a matching repair for a damaged tank
// beats a catapult for a tank without a bonus.
func cellBonus(b Board, t *tank.Tank, h hex.Hex) int {
	kind, _ := b.Terrain(h)
	switch kind {
	case terrain.HeavyRepair:
		if t.Damaged() && (t.Class() == tank.HeavyTank || t.Class() == tank.ATSPG) {
			return 2
		}
	case terrain.LightRepair:
		if t.Damaged() && t.Class() == tank.MediumTank {
			return 2
		}
	case terrain.Catapult:
		if t.BonusRange() == 0 && b.CatapultCharge(h) > 0 {
			return 1
		}
	case terrain.Empty, terrain.Base, terrain.Obstacle:
	}
	return 0
}

// freeBase lists base hexes that are empty or already held by t.
func freeBase(b Board, t *tank.Tank) []hex.Hex {
	var out []hex.Hex
	for _, h := range b.Base() {
		if o := b.Occupant(h); o == nil || o == t || o.Destroyed() {
			out = append(out, h)
		}
	}
	return out
}

func nearest(from hex.Hex, goals []hex.Hex) int {
	d := math.MaxInt
	for _, g := range goals {
		d = min(d, hex.Distance(from, g))
	}
	return d
}

// reachable walks at most steps moves through passable, unoccupied cells and
// returns the visited hexes in breadth-first order, excluding start.
func reachable(b Board, start hex.Hex, steps int) []hex.Hex {
	seen := map[hex.Hex]bool{start: true}
	frontier := []hex.Hex{start}
	var out []hex.Hex
	for i := 0; i < steps && len(frontier) > 0; i++ {
		var next []hex.Hex
		for _, h := range frontier {
			for _, n := range h.Neighbors() {
				if seen[n] {
					continue
				}
				seen[n] = true
				kind, ok := b.Terrain(n)
				if !ok || !kind.Passable() {
					continue
				}
				if o := b.Occupant(n); o != nil && !o.Destroyed() {
					continue
				}
				next = append(next, n)
				out = append(out, n)
			}
		}
		frontier = next
	}
	return out
}

func sortedTanks(b Board) []*tank.Tank {
	all := b.Tanks()
	out := make([]*tank.Tank, 0, len(all))
	for _, t := range all {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *tank.Tank) int { return a.ID() - b.ID() })
	return out
}
