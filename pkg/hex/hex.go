// Package hex implements cube coordinates for the battle grid.
// A Hex is comparable and is used directly as a map key.
package hex

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidCube is returned when q+r+s != 0.
var ErrInvalidCube = errors.New("invalid cube coordinates")

// Hex is a cube coordinate with the invariant Q+R+S == 0.
type Hex struct {
	Q, R, S int
}

// Origin is the center of every match grid.
var Origin = Hex{}

// New returns the hex for q, r, s or ErrInvalidCube.
func New(q, r, s int) (Hex, error) {
	if q+r+s != 0 {
		return Hex{}, fmt.Errorf("%w: (%d,%d,%d)", ErrInvalidCube, q, r, s)
	}
	return Hex{Q: q, R: r, S: s}, nil
}

// Axial builds a hex from two axial coordinates.
func Axial(q, r int) Hex {
	return Hex{Q: q, R: r, S: -q - r}
}

// Valid reports whether the cube invariant holds.
func (h Hex) Valid() bool {
	return h.Q+h.R+h.S == 0
}

func (h Hex) Add(o Hex) Hex {
	return Hex{Q: h.Q + o.Q, R: h.R + o.R, S: h.S + o.S}
}

func (h Hex) Sub(o Hex) Hex {
	return Hex{Q: h.Q - o.Q, R: h.R - o.R, S: h.S - o.S}
}

// Scale multiplies every component by k.
func (h Hex) Scale(k int) Hex {
	return Hex{Q: h.Q * k, R: h.R * k, S: h.S * k}
}

// Length is the distance from the origin.
func (h Hex) Length() int {
	return max(abs(h.Q), abs(h.R), abs(h.S))
}

// Distance returns the number of steps between a and b.
func Distance(a, b Hex) int {
	return a.Sub(b).Length()
}

func (h Hex) String() string {
	return fmt.Sprintf("(%d,%d,%d)", h.Q, h.R, h.S)
}

// Directions are the six unit offsets, clockwise from east.
var Directions = [6]Hex{
	{Q: 1, R: -1, S: 0},
	{Q: 1, R: 0, S: -1},
	{Q: 0, R: 1, S: -1},
	{Q: -1, R: 1, S: 0},
	{Q: -1, R: 0, S: 1},
	{Q: 0, R: -1, S: 1},
}

// Neighbor returns the adjacent hex in direction dir (0-5).
func (h Hex) Neighbor(dir int) Hex {
	return h.Add(Directions[((dir%6)+6)%6])
}

// Neighbors returns the six adjacent hexes.
func (h Hex) Neighbors() [6]Hex {
	var out [6]Hex
	for i, d := range Directions {
		out[i] = h.Add(d)
	}
	return out
}

// Ring returns the hexes at exactly radius steps from center.
// Radius 0 yields the center itself.
func Ring(center Hex, radius int) []Hex {
	if radius <= 0 {
		return []Hex{center}
	}
	out := make([]Hex, 0, 6*radius)
	h := center.Add(Directions[4].Scale(radius))
	for side := 0; side < 6; side++ {
		for step := 0; step < radius; step++ {
			out = append(out, h)
			h = h.Neighbor(side)
		}
	}
	return out
}

// Spiral enumerates every hex within radius of center, innermost ring first.
// It yields 3R²+3R+1 hexes with no duplicates.
func Spiral(center Hex, radius int) []Hex {
	out := make([]Hex, 0, 3*radius*radius+3*radius+1)
	for k := 0; k <= radius; k++ {
		out = append(out, Ring(center, k)...)
	}
	return out
}

// Line returns the hexes stepping from h in direction dir, excluding h.
func (h Hex) Line(dir, length int) []Hex {
	out := make([]Hex, 0, length)
	cur := h
	for i := 0; i < length; i++ {
		cur = cur.Neighbor(dir)
		out = append(out, cur)
	}
	return out
}

// DirectionTo returns the direction index if o lies on one of the six straight
// lines out of h.
func (h Hex) DirectionTo(o Hex) (int, bool) {
	d := o.Sub(h)
	n := d.Length()
	if n == 0 {
		return 0, false
	}
	for i, dir := range Directions {
		if dir.Scale(n) == d {
			return i, true
		}
	}
	return 0, false
}

// Dict is the {x,y,z} wire shape of a hex.
type Dict struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	Z int `json:"z" yaml:"z"`
}

// ToDict converts to the wire shape.
func (h Hex) ToDict() Dict {
	return Dict{X: h.Q, Y: h.R, Z: h.S}
}

// FromDict converts the wire shape back into a Hex.
func FromDict(d Dict) (Hex, error) {
	return New(d.X, d.Y, d.Z)
}

// MarshalJSON encodes the hex as {"x":q,"y":r,"z":s}.
func (h Hex) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.ToDict())
}

// UnmarshalJSON decodes {"x","y","z"} and validates the cube invariant.
func (h *Hex) UnmarshalJSON(data []byte) error {
	var d Dict
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	v, err := FromDict(d)
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// UnmarshalYAML lets scenario files use the same {x,y,z} mapping.
func (h *Hex) UnmarshalYAML(unmarshal func(any) error) error {
	var d Dict
	if err := unmarshal(&d); err != nil {
		return err
	}
	v, err := FromDict(d)
	if err != nil {
		return err
	}
	*h = v
	return nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
