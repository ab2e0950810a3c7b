// Package sandbox is an offline authoritative game server. It accepts every
// submitted action, resolves damage with the same geometry as the client,
// awards capture points and respawns destroyed tanks. It serves snapshots
// through the same interfaces as the network transport.
package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"sync"

	"github.com/hexforge/tankbot/internal/gamemap"
	"github.com/hexforge/tankbot/internal/roster"
	"github.com/hexforge/tankbot/internal/tactics"
	"github.com/hexforge/tankbot/pkg/core"
)

// CapturePointsToWin ends the match early.
const CapturePointsToWin = 5

// Server holds the authoritative snapshot. world mirrors it for geometry
// queries and is refreshed after every change.
type Server struct {
	mu      sync.Mutex
	layout  core.GameMap
	state   core.GameState
	world   *gamemap.Map
	logger  *slog.Logger
	version uint64
	served  uint64
	changed chan struct{}
}

func New(layout core.GameMap, state core.GameState, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	state = clone(state)
	world, err := gamemap.Build(layout, state, roster.FromState(state))
	if err != nil {
		return nil, fmt.Errorf("sandbox world: %w", err)
	}
	return &Server{
		layout:  layout,
		state:   state,
		world:   world,
		logger:  logger.With("component", "sandbox"),
		version: 1,
		changed: make(chan struct{}),
	}, nil
}

// Layout returns the static map.
func (s *Server) Layout() core.GameMap { return s.layout }

// State returns a copy of the current snapshot.
func (s *Server) State() core.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.state)
}

// Next blocks until a snapshot newer than the last one returned exists.
func (s *Server) Next(ctx context.Context) (core.GameState, error) {
	for {
		s.mu.Lock()
		if s.version > s.served {
			s.served = s.version
			st := clone(s.state)
			s.mu.Unlock()
			return st, nil
		}
		wait := s.changed
		s.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return core.GameState{}, ctx.Err()
		}
	}
}

func (s *Server) Move(a core.MoveAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := core.VehicleKey(a.VehicleID)
	v, ok := s.state.Vehicles[key]
	if !ok || v.Health <= 0 || !s.world.InBounds(a.Target) {
		s.logger.Warn("move ignored", "vehicle", a.VehicleID, "target", a.Target)
		return
	}
	if t, ok := s.world.Tank(a.VehicleID); ok {
		s.world.ApplyTerrain(t, a.Target)
		v.Health = t.HP()
		v.ShootRangeBonus = t.BonusRange()
	}
	v.Position = a.Target
	s.state.Vehicles[key] = v
	s.sync()
}

func (s *Server) Shoot(a core.ShootAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attacker, ok := s.world.Tank(a.VehicleID)
	if !ok || attacker.Destroyed() {
		s.logger.Warn("shot ignored", "vehicle", a.VehicleID, "target", a.Target)
		return
	}
	for _, victim := range tactics.Affected(s.world, attacker, a.Target) {
		key := core.VehicleKey(victim.ID())
		v := s.state.Vehicles[key]
		v.Health = max(v.Health-attacker.Damage(), 0)
		s.state.Vehicles[key] = v
		s.recordHit(attacker.PlayerID(), victim.PlayerID(), v.Health == 0)
	}
	attacker.SetBonusRange(0)
	shooter := s.state.Vehicles[core.VehicleKey(a.VehicleID)]
	shooter.ShootRangeBonus = 0
	s.state.Vehicles[core.VehicleKey(a.VehicleID)] = shooter
	s.sync()
}

// Turn ends the current participant's turn.
func (s *Server) Turn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Finished {
		return
	}

	owner := s.state.CurrentPlayerIdx
	for _, key := range slices.Sorted(maps.Keys(s.state.Vehicles)) {
		v := s.state.Vehicles[key]
		switch {
		case v.Health <= 0:
			v.Health = maxHP(s.world, key)
			v.Position = v.SpawnPosition
			v.CapturePoints = 0
		case v.PlayerID == owner && s.world.IsInBase(v.Position):
			v.CapturePoints++
		}
		s.state.Vehicles[key] = v
	}

	s.state.CurrentTurn++
	s.state.CurrentPlayerIdx = s.nextOwner(owner)
	delete(s.state.AttackMatrix, strconv.Itoa(s.state.CurrentPlayerIdx))
	if w, ok := s.leader(); ok {
		s.state.Finished = true
		s.state.Winner = &w
	} else if s.state.NumTurns > 0 && s.state.CurrentTurn >= s.state.NumTurns {
		s.state.Finished = true
	}
	s.sync()
	s.version++
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Server) nextOwner(owner int) int {
	players := s.state.Players
	for i, p := range players {
		if p.Idx == owner {
			return players[(i+1)%len(players)].Idx
		}
	}
	return players[0].Idx
}

// leader reports a player whose tanks hold enough capture points.
func (s *Server) leader() (int, bool) {
	points := map[int]int{}
	for _, v := range s.state.Vehicles {
		points[v.PlayerID] += v.CapturePoints
	}
	for _, p := range s.state.Players {
		if points[p.Idx] >= CapturePointsToWin {
			return p.Idx, true
		}
	}
	return 0, false
}

// recordHit keeps the attack matrix and the kill tally, both keyed by the
// attacking player.
func (s *Server) recordHit(attacker, victim int, killed bool) {
	key := strconv.Itoa(attacker)
	if killed {
		if s.state.WinPoints == nil {
			s.state.WinPoints = map[string]core.WinPoints{}
		}
		wp := s.state.WinPoints[key]
		wp.Kill++
		s.state.WinPoints[key] = wp
	}
	if s.state.AttackMatrix == nil {
		s.state.AttackMatrix = map[string][]int{}
	}
	if !slices.Contains(s.state.AttackMatrix[key], victim) {
		s.state.AttackMatrix[key] = append(s.state.AttackMatrix[key], victim)
	}
}

// sync pushes the snapshot into the geometry mirror. Must hold mu.
func (s *Server) sync() {
	if _, err := s.world.UpdateMap(s.state); err != nil {
		s.logger.Error("sandbox world out of sync", "error", err)
	}
}

func maxHP(world *gamemap.Map, key string) int {
	id, _ := core.VehicleID(key)
	if t, ok := world.Tank(id); ok {
		return t.MaxHP()
	}
	return 1
}

func clone(st core.GameState) core.GameState {
	out := st
	out.Players = slices.Clone(st.Players)
	out.Observers = slices.Clone(st.Observers)
	out.Vehicles = maps.Clone(st.Vehicles)
	out.WinPoints = maps.Clone(st.WinPoints)
	if st.AttackMatrix != nil {
		out.AttackMatrix = make(map[string][]int, len(st.AttackMatrix))
		for k, v := range st.AttackMatrix {
			out.AttackMatrix[k] = slices.Clone(v)
		}
	}
	if st.Winner != nil {
		w := *st.Winner
		out.Winner = &w
	}
	return out
}
