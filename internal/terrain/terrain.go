// Package terrain defines the closed set of cell kinds on the battle grid.
package terrain

import (
	"errors"
	"fmt"

	"github.com/hexforge/tankbot/pkg/core"
)

// ErrUnknown is returned for a content tag outside the known set.
var ErrUnknown = errors.New("unknown terrain tag")

// Kind is the terrain of a cell. Switches over Kind must be exhaustive.
type Kind uint8

const (
	Empty Kind = iota
	Base
	Obstacle
	LightRepair
	HeavyRepair
	Catapult
)

// CatapultCharges is the number of bonuses a fresh catapult grants.
const CatapultCharges = 3

// Parse maps a layout content tag to a Kind.
func Parse(tag string) (Kind, error) {
	switch tag {
	case core.ContentBase:
		return Base, nil
	case core.ContentObstacle:
		return Obstacle, nil
	case core.ContentLightRepair:
		return LightRepair, nil
	case core.ContentHardRepair:
		return HeavyRepair, nil
	case core.ContentCatapult:
		return Catapult, nil
	default:
		return Empty, fmt.Errorf("%w: %q", ErrUnknown, tag)
	}
}

// Passable reports whether a tank may enter a cell of this kind.
func (k Kind) Passable() bool {
	switch k {
	case Obstacle:
		return false
	case Empty, Base, LightRepair, HeavyRepair, Catapult:
		return true
	default:
		return false
	}
}

// BlocksFire reports whether straight-line fire stops at this kind.
func (k Kind) BlocksFire() bool {
	return k == Obstacle
}

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Base:
		return core.ContentBase
	case Obstacle:
		return core.ContentObstacle
	case LightRepair:
		return core.ContentLightRepair
	case HeavyRepair:
		return "heavy_repair"
	case Catapult:
		return core.ContentCatapult
	default:
		return fmt.Sprintf("terrain(%d)", uint8(k))
	}
}
