// Package tank holds the per-unit record mutated by reconciliation and by
// speculative local actions.
package tank

import (
	"errors"
	"fmt"

	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/hex"
)

// ErrUnknownClass is returned for a vehicle type outside the class table.
var ErrUnknownClass = errors.New("unknown vehicle class")

// Class is the vehicle type.
type Class string

const (
	SPG        Class = "spg"
	LightTank  Class = "light_tank"
	HeavyTank  Class = "heavy_tank"
	MediumTank Class = "medium_tank"
	ATSPG      Class = "at_spg"
)

// Stats are the fixed attributes of a class.
type Stats struct {
	MaxHP    int
	SP       int
	Damage   int
	MinRange int
	MaxRange int
	// Line marks classes that fire along one of the six axes and hit
	// everything on it.
	Line bool
}

var classStats = map[Class]Stats{
	SPG:        {MaxHP: 1, SP: 1, Damage: 1, MinRange: 3, MaxRange: 3},
	LightTank:  {MaxHP: 1, SP: 3, Damage: 1, MinRange: 2, MaxRange: 2},
	HeavyTank:  {MaxHP: 3, SP: 1, Damage: 1, MinRange: 1, MaxRange: 2},
	MediumTank: {MaxHP: 2, SP: 2, Damage: 1, MinRange: 2, MaxRange: 2},
	ATSPG:      {MaxHP: 2, SP: 1, Damage: 1, MinRange: 1, MaxRange: 3, Line: true},
}

// ParseClass validates a wire vehicle type.
func ParseClass(s string) (Class, error) {
	c := Class(s)
	if _, ok := classStats[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownClass, s)
	}
	return c, nil
}

// Stats returns the attributes of c.
func (c Class) Stats() Stats {
	return classStats[c]
}

// Colors are the display colours of the owning player.
type Colors struct {
	Tank  string
	Spawn string
}

// Tank is one vehicle. It is referenced, never owned, by the map's position index.
type Tank struct {
	id         int
	playerID   int
	class      Class
	stats      Stats
	position   hex.Hex
	spawn      hex.Hex
	hp         int
	cp         int
	bonusRange int
	colors     Colors
}

// New creates a tank from its snapshot entry.
func New(id int, v core.Vehicle, colors Colors) (*Tank, error) {
	class, err := ParseClass(v.VehicleType)
	if err != nil {
		return nil, fmt.Errorf("vehicle %d: %w", id, err)
	}
	return &Tank{
		id:         id,
		playerID:   v.PlayerID,
		class:      class,
		stats:      class.Stats(),
		position:   v.Position,
		spawn:      v.SpawnPosition,
		hp:         v.Health,
		cp:         v.CapturePoints,
		bonusRange: v.ShootRangeBonus,
		colors:     colors,
	}, nil
}

func (t *Tank) ID() int           { return t.id }
func (t *Tank) PlayerID() int     { return t.playerID }
func (t *Tank) Class() Class      { return t.class }
func (t *Tank) Position() hex.Hex { return t.position }
func (t *Tank) Spawn() hex.Hex    { return t.spawn }
func (t *Tank) HP() int           { return t.hp }
func (t *Tank) MaxHP() int        { return t.stats.MaxHP }
func (t *Tank) CP() int           { return t.cp }
func (t *Tank) SP() int           { return t.stats.SP }
func (t *Tank) Damage() int       { return t.stats.Damage }
func (t *Tank) BonusRange() int   { return t.bonusRange }
func (t *Tank) Colors() Colors    { return t.colors }
func (t *Tank) Destroyed() bool   { return t.hp <= 0 }
func (t *Tank) Damaged() bool     { return t.hp < t.stats.MaxHP }
func (t *Tank) FiresInLine() bool { return t.stats.Line }
func (t *Tank) MinRange() int     { return t.stats.MinRange }
func (t *Tank) MaxRange() int     { return t.stats.MaxRange + t.bonusRange }

// InRange reports whether a target at distance d can be hit without line rules.
func (t *Tank) InRange(d int) bool {
	return d >= t.MinRange() && d <= t.MaxRange()
}

// UpdatePosition overwrites the position.
func (t *Tank) UpdatePosition(h hex.Hex) { t.position = h }

// UpdateHP overwrites the health.
func (t *Tank) UpdateHP(hp int) { t.hp = hp }

// UpdateCP overwrites the capture points.
func (t *Tank) UpdateCP(cp int) { t.cp = cp }

// SetBonusRange sets the one-shot range bonus; 0 clears it.
func (t *Tank) SetBonusRange(n int) { t.bonusRange = n }

// Repair restores full health.
func (t *Tank) Repair() { t.hp = t.stats.MaxHP }

// TakeDamage lowers health, never below zero, and reports whether the tank
// was destroyed by this hit.
func (t *Tank) TakeDamage(n int) bool {
	if t.hp <= 0 {
		return false
	}
	t.hp -= n
	if t.hp < 0 {
		t.hp = 0
	}
	return t.hp == 0
}

func (t *Tank) String() string {
	return fmt.Sprintf("tank %d (%s, player %d) at %s hp=%d cp=%d", t.id, t.class, t.playerID, t.position, t.hp, t.cp)
}
