// Package scenario loads offline match setups: a map layout and the
// opening snapshot, written in YAML.
package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hexforge/tankbot/internal/tank"
	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/hex"
)

var ErrInvalid = errors.New("invalid scenario")

// Scenario is one offline match setup.
type Scenario struct {
	Name  string         `yaml:"name"`
	Map   core.GameMap   `yaml:"map"`
	State core.GameState `yaml:"state"`
}

// Load reads and validates the scenario at path.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return Parse(b)
}

// Parse decodes a scenario and fills the counters the file may omit.
func Parse(b []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}
	if err := s.normalize(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) normalize() error {
	if s.Map.Size <= 0 {
		return fmt.Errorf("%w: map size %d", ErrInvalid, s.Map.Size)
	}
	if len(s.State.Players) == 0 {
		return fmt.Errorf("%w: no players", ErrInvalid)
	}
	if s.Map.Name == "" {
		s.Map.Name = s.Name
	}
	if s.State.NumPlayers == 0 {
		s.State.NumPlayers = len(s.State.Players)
	}
	if s.State.NumTurns == 0 {
		s.State.NumTurns = 45
	}
	if s.State.Vehicles == nil {
		s.State.Vehicles = map[string]core.Vehicle{}
	}

	known := make(map[int]bool, len(s.State.Players))
	for _, p := range s.State.Players {
		known[p.Idx] = true
	}
	if !known[s.State.CurrentPlayerIdx] {
		s.State.CurrentPlayerIdx = s.State.Players[0].Idx
	}
	for key, v := range s.State.Vehicles {
		if _, err := core.VehicleID(key); err != nil {
			return fmt.Errorf("%w: vehicle key %q", ErrInvalid, key)
		}
		if !known[v.PlayerID] {
			return fmt.Errorf("%w: vehicle %s owned by unknown player %d", ErrInvalid, key, v.PlayerID)
		}
		class, err := tank.ParseClass(v.VehicleType)
		if err != nil {
			return fmt.Errorf("%w: vehicle %s: %w", ErrInvalid, key, err)
		}
		// An omitted spawn is the starting hex; omitted health is full.
		if v.SpawnPosition == hex.Origin {
			v.SpawnPosition = v.Position
		}
		if v.Health == 0 {
			v.Health = class.Stats().MaxHP
		}
		s.State.Vehicles[key] = v
	}
	return nil
}
