// Package render turns board snapshots into GeoJSON frames, one file per
// game turn. Hexes are pointy-top and HexSize metres wide on a Web Mercator
// plane centred on 0,0; frames carry WGS84 lon/lat so they open directly in
// any GeoJSON viewer.
package render

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/hexforge/tankbot/internal/gamemap"
	"github.com/hexforge/tankbot/internal/tank"
	"github.com/hexforge/tankbot/internal/terrain"
	"github.com/hexforge/tankbot/pkg/hex"
)

// Board is the read-only view the renderer needs.
type Board interface {
	Name() string
	Radius() int
	Hexes() []hex.Hex
	Terrain(h hex.Hex) (terrain.Kind, bool)
	Occupant(h hex.Hex) *tank.Tank
	CatapultCharge(h hex.Hex) int
}

var _ Board = (*gamemap.Map)(nil)

// HexSize is the centre-to-corner distance of a hex in metres.
const HexSize = 1000.0

var (
	sqrt3    = math.Sqrt(3)
	toLonLat = wgs84.EPSG().Transform(3857, 4326)
)

// Center returns the planar centre of h in hex units.
func Center(h hex.Hex) (x, y float64) {
	return sqrt3 * (float64(h.Q) + float64(h.R)/2), 1.5 * float64(h.R)
}

// LonLat projects a planar point in hex units to WGS84.
func LonLat(x, y float64) (lon, lat float64) {
	lon, lat, _ = toLonLat(x*HexSize, y*HexSize, 0)
	return lon, lat
}

// Polygon returns the hexagon outline of h.
func Polygon(h hex.Hex) (geom.Geometry, error) {
	cx, cy := Center(h)
	var b strings.Builder
	b.WriteString("POLYGON((")
	for i := 0; i <= 6; i++ {
		angle := math.Pi / 180 * float64(60*(i%6)-30)
		if i > 0 {
			b.WriteString(",")
		}
		lon, lat := LonLat(cx+math.Cos(angle), cy+math.Sin(angle))
		b.WriteString(strconv.FormatFloat(round(lon), 'f', -1, 64))
		b.WriteString(" ")
		b.WriteString(strconv.FormatFloat(round(lat), 'f', -1, 64))
	}
	b.WriteString("))")
	return geom.UnmarshalWKT(b.String())
}

func round(v float64) float64 {
	return math.Round(v*1e7) / 1e7
}

// Frame builds the feature collection of one board snapshot.
func Frame(gameTurn int, b Board) (geom.GeoJSONFeatureCollection, error) {
	hexes := b.Hexes()
	fc := make(geom.GeoJSONFeatureCollection, 0, len(hexes))
	for _, h := range hexes {
		g, err := Polygon(h)
		if err != nil {
			return nil, fmt.Errorf("hex %s: %w", h, err)
		}
		kind, _ := b.Terrain(h)
		props := map[string]any{
			"turn":    gameTurn,
			"q":       h.Q,
			"r":       h.R,
			"s":       h.S,
			"terrain": kind.String(),
		}
		if kind == terrain.Catapult {
			props["charges"] = b.CatapultCharge(h)
		}
		if t := b.Occupant(h); t != nil {
			props["tank"] = t.ID()
			props["player"] = t.PlayerID()
			props["class"] = string(t.Class())
			props["hp"] = t.HP()
			props["cp"] = t.CP()
			props["fill"] = t.Colors().Tank
		}
		fc = append(fc, geom.GeoJSONFeature{
			Geometry:   g,
			ID:         h.String(),
			Properties: props,
		})
	}
	return fc, nil
}

// Frames writes a frame for every observed turn into Dir.
type Frames struct {
	Dir    string
	Logger *slog.Logger
}

func NewFrames(dir string, logger *slog.Logger) (*Frames, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("render dir %s: %w", dir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Frames{Dir: dir, Logger: logger.With("component", "render")}, nil
}

// Path returns the file a turn's frame is written to.
func (f *Frames) Path(gameTurn int) string {
	return filepath.Join(f.Dir, fmt.Sprintf("turn_%04d.geojson", gameTurn))
}

// Observe implements orchestrator.Observer.
func (f *Frames) Observe(gameTurn int, gm *gamemap.Map) error {
	return f.Write(gameTurn, gm)
}

// Write renders b and stores it under Path(gameTurn).
func (f *Frames) Write(gameTurn int, b Board) error {
	fc, err := Frame(gameTurn, b)
	if err != nil {
		return err
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("marshal frame %d: %w", gameTurn, err)
	}
	path := f.Path(gameTurn)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write frame %d: %w", gameTurn, err)
	}
	f.Logger.Debug("frame written", "turn", gameTurn, "map", b.Name(), "path", path, "features", len(fc))
	return nil
}
