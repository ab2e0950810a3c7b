package render

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexforge/tankbot/internal/gamemap"
	"github.com/hexforge/tankbot/internal/roster"
	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/hex"
)

func buildMap(t *testing.T) *gamemap.Map {
	t.Helper()
	spawn := hex.Axial(-2, 0)
	layout := core.GameMap{
		Size: 4,
		Name: "frame",
		Content: map[string][]hex.Hex{
			core.ContentBase:     {hex.Origin},
			core.ContentCatapult: {hex.Axial(1, 1)},
		},
	}
	state := core.GameState{
		NumPlayers: 1,
		Players:    []core.PlayerInfo{{Idx: 1, Name: "alice"}},
		Vehicles: map[string]core.Vehicle{
			core.VehicleKey(1): {PlayerID: 1, VehicleType: "heavy_tank", Health: 3, SpawnPosition: spawn, Position: spawn},
		},
	}
	gm, err := gamemap.Build(layout, state, roster.FromState(state))
	require.NoError(t, err)
	return gm
}

func TestCenter(t *testing.T) {
	x, y := Center(hex.Origin)
	assert.Zero(t, x)
	assert.Zero(t, y)

	x, y = Center(hex.Axial(0, 2))
	assert.InDelta(t, 2*0.8660254, x, 1e-6)
	assert.InDelta(t, 3.0, y, 1e-9)
}

func TestLonLat(t *testing.T) {
	lon, lat := LonLat(0, 0)
	assert.InDelta(t, 0, lon, 1e-9)
	assert.InDelta(t, 0, lat, 1e-9)

	// one hex unit east is HexSize metres, about 0.009 degrees at the equator
	lon, lat = LonLat(1, 0)
	assert.InDelta(t, 0.008983, lon, 1e-5)
	assert.InDelta(t, 0, lat, 1e-9)

	_, lat = LonLat(0, 1)
	assert.Positive(t, lat)
}

func TestPolygon(t *testing.T) {
	g, err := Polygon(hex.Axial(1, -1))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(g.AsText(), "POLYGON"))
	assert.False(t, g.IsEmpty())
}

func TestFrame(t *testing.T) {
	gm := buildMap(t)

	fc, err := Frame(5, gm)
	require.NoError(t, err)
	assert.Len(t, fc, 3*3*3+3*3+1)

	byID := make(map[string]map[string]any, len(fc))
	for _, f := range fc {
		byID[f.ID.(string)] = f.Properties
	}

	base := byID[hex.Origin.String()]
	require.NotNil(t, base)
	assert.Equal(t, core.ContentBase, base["terrain"])
	assert.Equal(t, 5, base["turn"])

	cat := byID[hex.Axial(1, 1).String()]
	require.NotNil(t, cat)
	assert.Equal(t, 3, cat["charges"])

	occupied := byID[hex.Axial(-2, 0).String()]
	require.NotNil(t, occupied)
	assert.Equal(t, 1, occupied["tank"])
	assert.Equal(t, 1, occupied["player"])
	assert.Equal(t, "heavy_tank", occupied["class"])
	assert.Equal(t, 3, occupied["hp"])
}

func TestFramesObserve(t *testing.T) {
	dir := t.TempDir() + "/frames"
	f, err := NewFrames(dir, nil)
	require.NoError(t, err)

	gm := buildMap(t)
	require.NoError(t, f.Observe(2, gm))

	data, err := os.ReadFile(f.Path(2))
	require.NoError(t, err)

	var doc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	assert.Len(t, doc.Features, 37)
	assert.Contains(t, f.Path(2), "turn_0002.geojson")
}
