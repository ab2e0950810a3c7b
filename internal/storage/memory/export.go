package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/hex"
)

// ReplayVersion is bumped on incompatible changes of the export layout.
const ReplayVersion = 1

// ReplayExport is the root JSON structure of a replay file.
type ReplayExport struct {
	Version    int               `json:"version"`
	SessionID  string            `json:"sessionId"`
	GameName   string            `json:"gameName"`
	MapName    string            `json:"mapName"`
	MapSize    int               `json:"mapSize"`
	NumPlayers int               `json:"numPlayers"`
	NumTurns   int               `json:"numTurns"`
	StartTime  time.Time         `json:"startTime"`
	EndTime    time.Time         `json:"endTime"`
	Players    []core.PlayerInfo `json:"players"`
	Layout     core.GameMap      `json:"layout"`
	Turns      []TurnJSON        `json:"turns"`
}

// TurnJSON groups everything recorded under one scheduler turn.
type TurnJSON struct {
	Turn       uint64  `json:"turn"`
	GameTurn   int     `json:"gameTurn"`
	Owner      int     `json:"owner"`
	Reconciled int     `json:"reconciled"`
	DurationMs float64 `json:"durationMs"`
	// [kind, playerId, vehicleId, target|null, affected]
	Actions [][]any `json:"actions"`
	// [vehicleId, playerId, [x, y, z], health, capturePoints]
	Tanks [][]any `json:"tanks"`
}

// BuildExport arranges recorded rows by turn number.
func BuildExport(m core.Match, turns []core.TurnRecord, actions []core.ActionRecord, tanks []core.TankState) ReplayExport {
	export := ReplayExport{
		Version:    ReplayVersion,
		SessionID:  m.SessionID,
		GameName:   m.GameName,
		MapName:    m.MapName,
		MapSize:    m.MapSize,
		NumPlayers: m.NumPlayers,
		NumTurns:   m.NumTurns,
		StartTime:  m.StartTime,
		EndTime:    m.EndTime,
		Players:    slices.Clone(m.Players),
		Layout:     m.Layout,
		Turns:      make([]TurnJSON, 0),
	}

	byTurn := map[uint64]*TurnJSON{}
	get := func(n uint64) *TurnJSON {
		t, ok := byTurn[n]
		if !ok {
			t = &TurnJSON{Turn: n, Actions: make([][]any, 0), Tanks: make([][]any, 0)}
			byTurn[n] = t
		}
		return t
	}

	for _, r := range turns {
		t := get(r.Turn)
		t.GameTurn = r.GameTurn
		t.Owner = r.Owner
		t.Reconciled = r.Reconciled
		t.DurationMs = float64(r.Duration.Microseconds()) / 1000
	}
	for _, a := range actions {
		var target any
		if a.Target != nil {
			target = cube(*a.Target)
		}
		affected := a.Affected
		if affected == nil {
			affected = []int{}
		}
		t := get(a.Turn)
		t.Actions = append(t.Actions, []any{string(a.Kind), a.PlayerID, a.VehicleID, target, affected})
	}
	for _, s := range tanks {
		t := get(s.Turn)
		t.Tanks = append(t.Tanks, []any{s.VehicleID, s.PlayerID, cube(s.Position), s.Health, s.CapturePoints})
	}

	numbers := make([]uint64, 0, len(byTurn))
	for n := range byTurn {
		numbers = append(numbers, n)
	}
	slices.Sort(numbers)
	for _, n := range numbers {
		export.Turns = append(export.Turns, *byTurn[n])
	}
	return export
}

func cube(h hex.Hex) []int {
	return []int{h.Q, h.R, h.S}
}

// FileName is the replay file name of a match.
func FileName(m core.Match, compress bool) string {
	name := m.GameName
	if name == "" {
		name = "match"
	}
	name = strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(name)
	name = fmt.Sprintf("%s_%s", name, m.StartTime.Format("20060102_150405"))
	if compress {
		return name + ".json.gz"
	}
	return name + ".json"
}

// WriteReplay writes export to path, gzipped when compress is set.
func WriteReplay(path string, export ReplayExport, compress bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	if compress {
		gz := gzip.NewWriter(f)
		defer gz.Close()
		w = gz
	}
	if err := json.NewEncoder(w).Encode(export); err != nil {
		return fmt.Errorf("encoding replay: %w", err)
	}
	return nil
}

// exportJSON writes the match to the output directory. Called with mu held.
func (b *Backend) exportJSON() error {
	export := BuildExport(*b.match, b.turns, b.actions, b.tanks)
	path := filepath.Join(b.cfg.OutputDir, FileName(*b.match, b.cfg.CompressOutput))
	if err := WriteReplay(path, export, b.cfg.CompressOutput); err != nil {
		return err
	}
	b.lastExportPath = path
	return nil
}
