// Package core holds the wire and snapshot types shared by the transport,
// the map model and the persistence layer.
package core

import (
	"strconv"

	"github.com/hexforge/tankbot/pkg/hex"
)

// Terrain tags as they appear in the server's map content.
const (
	ContentBase        = "base"
	ContentObstacle    = "obstacle"
	ContentLightRepair = "light_repair"
	ContentHardRepair  = "hard_repair"
	ContentCatapult    = "catapult"
)

// GameMap is the static layout sent once per match.
type GameMap struct {
	Size    int                    `json:"size" yaml:"size"`
	Name    string                 `json:"name" yaml:"name"`
	Spawns  []map[string][]hex.Hex `json:"spawn_points,omitempty" yaml:"spawn_points,omitempty"`
	Content map[string][]hex.Hex   `json:"content" yaml:"content"`
}

// Radius is the largest ring index on the map.
func (m GameMap) Radius() int {
	if m.Size <= 0 {
		return 0
	}
	return m.Size - 1
}

// Vehicle is one tank entry of a game state snapshot.
type Vehicle struct {
	PlayerID        int     `json:"player_id" yaml:"player_id"`
	VehicleType     string  `json:"vehicle_type" yaml:"vehicle_type"`
	Health          int     `json:"health" yaml:"health"`
	SpawnPosition   hex.Hex `json:"spawn_position" yaml:"spawn_position"`
	Position        hex.Hex `json:"position" yaml:"position"`
	CapturePoints   int     `json:"capture_points" yaml:"capture_points"`
	ShootRangeBonus int     `json:"shoot_range_bonus" yaml:"shoot_range_bonus"`
}

// PlayerInfo describes a participant as reported by the server.
type PlayerInfo struct {
	Idx        int    `json:"idx" yaml:"idx"`
	Name       string `json:"name" yaml:"name"`
	IsObserver bool   `json:"is_observer" yaml:"is_observer"`
}

// WinPoints is the per-player score table.
type WinPoints struct {
	Capture int `json:"capture" yaml:"capture"`
	Kill    int `json:"kill" yaml:"kill"`
}

// GameState is an authoritative snapshot. Vehicles are keyed by the
// decimal string form of the vehicle id, as on the wire.
type GameState struct {
	NumPlayers       int                  `json:"num_players" yaml:"num_players"`
	NumTurns         int                  `json:"num_turns" yaml:"num_turns"`
	NumRounds        int                  `json:"num_rounds,omitempty" yaml:"num_rounds,omitempty"`
	CurrentTurn      int                  `json:"current_turn" yaml:"current_turn"`
	CurrentPlayerIdx int                  `json:"current_player_idx" yaml:"current_player_idx"`
	Finished         bool                 `json:"finished" yaml:"finished"`
	Players          []PlayerInfo         `json:"players" yaml:"players"`
	Observers        []PlayerInfo         `json:"observers,omitempty" yaml:"observers,omitempty"`
	Vehicles         map[string]Vehicle   `json:"vehicles" yaml:"vehicles"`
	AttackMatrix     map[string][]int     `json:"attack_matrix,omitempty" yaml:"attack_matrix,omitempty"`
	Winner           *int                 `json:"winner,omitempty" yaml:"winner,omitempty"`
	WinPoints        map[string]WinPoints `json:"win_points,omitempty" yaml:"win_points,omitempty"`
}

// VehicleID parses a wire vehicle key.
func VehicleID(key string) (int, error) {
	return strconv.Atoi(key)
}

// VehicleKey formats a vehicle id as a wire key.
func VehicleKey(id int) string {
	return strconv.Itoa(id)
}
