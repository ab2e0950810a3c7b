// Package parser decodes server payloads into core types and rejects the
// ones the map model could not use.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/streaming"
)

// ErrInvalidPayload wraps every decoding or validation failure.
var ErrInvalidPayload = errors.New("invalid payload")

var knownContent = []string{
	core.ContentBase,
	core.ContentObstacle,
	core.ContentLightRepair,
	core.ContentHardRepair,
	core.ContentCatapult,
}

// Parser turns raw JSON into core structs.
// It has no dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

func invalid(what string, err error) error {
	return fmt.Errorf("%s: %w: %w", what, ErrInvalidPayload, err)
}

// ParseEnvelope splits a server message into its type and payload.
func (p *Parser) ParseEnvelope(data []byte) (streaming.Envelope, error) {
	var env streaming.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, invalid("envelope", err)
	}
	if env.Type == "" {
		return env, invalid("envelope", errors.New("missing type"))
	}
	return env, nil
}

// ParseLogin decodes a login ack payload.
func (p *Parser) ParseLogin(raw json.RawMessage) (streaming.LoginResponse, error) {
	var resp streaming.LoginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return resp, invalid("login", err)
	}
	return resp, nil
}

// ParseMap decodes a layout. Unknown content tags are logged and dropped;
// a map without a positive size is rejected.
func (p *Parser) ParseMap(raw json.RawMessage) (core.GameMap, error) {
	var m core.GameMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, invalid("map", err)
	}
	if m.Size <= 0 {
		return m, invalid("map", fmt.Errorf("size %d", m.Size))
	}
	for tag := range m.Content {
		if !slices.Contains(knownContent, tag) {
			p.logger.Warn("dropping unknown map content", "tag", tag, "hexes", len(m.Content[tag]))
			delete(m.Content, tag)
		}
	}
	return m, nil
}

// ParseGameState decodes a snapshot and checks that every vehicle key is
// numeric and owned by a listed player.
func (p *Parser) ParseGameState(raw json.RawMessage) (core.GameState, error) {
	var s core.GameState
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, invalid("game state", err)
	}

	players := make(map[int]bool, len(s.Players))
	for _, info := range s.Players {
		players[info.Idx] = true
	}
	for key, v := range s.Vehicles {
		if _, err := core.VehicleID(key); err != nil {
			return s, invalid("game state", fmt.Errorf("vehicle key %q", key))
		}
		if !players[v.PlayerID] {
			return s, invalid("game state", fmt.Errorf("vehicle %s owned by unknown player %d", key, v.PlayerID))
		}
	}
	if s.Vehicles == nil {
		s.Vehicles = map[string]core.Vehicle{}
	}
	return s, nil
}
