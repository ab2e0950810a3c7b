package parser

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/hex"
	"github.com/hexforge/tankbot/pkg/streaming"
)

func newTestParser() *Parser {
	return NewParser(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParseEnvelope(t *testing.T) {
	p := newTestParser()

	env, err := p.ParseEnvelope([]byte(`{"type":"game_state","payload":{"num_turns":45}}`))
	require.NoError(t, err)
	assert.Equal(t, streaming.TypeGameState, env.Type)
	assert.JSONEq(t, `{"num_turns":45}`, string(env.Payload))

	_, err = p.ParseEnvelope([]byte(`{"payload":{}}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = p.ParseEnvelope([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestParseLogin(t *testing.T) {
	p := newTestParser()

	resp, err := p.ParseLogin([]byte(`{"idx":7,"name":"alice","is_observer":false}`))
	require.NoError(t, err)
	assert.Equal(t, streaming.LoginResponse{Idx: 7, Name: "alice"}, resp)

	_, err = p.ParseLogin([]byte(`[]`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestParseMap(t *testing.T) {
	p := newTestParser()

	m, err := p.ParseMap([]byte(`{
		"size": 11,
		"name": "map01",
		"content": {
			"base": [{"x":0,"y":0,"z":0}],
			"lava": [{"x":1,"y":-1,"z":0}]
		}
	}`))
	require.NoError(t, err)
	assert.Equal(t, 10, m.Radius())
	assert.Equal(t, []hex.Hex{hex.Origin}, m.Content[core.ContentBase])
	assert.NotContains(t, m.Content, "lava")
}

func TestParseMap_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"zero size", `{"size":0,"content":{}}`},
		{"bad cube", `{"size":3,"content":{"base":[{"x":1,"y":1,"z":1}]}}`},
		{"wrong type", `{"size":"big"}`},
	}

	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseMap([]byte(tt.raw))
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestParseGameState(t *testing.T) {
	p := newTestParser()

	s, err := p.ParseGameState([]byte(`{
		"num_players": 2,
		"num_turns": 45,
		"current_turn": 3,
		"current_player_idx": 1,
		"finished": false,
		"players": [{"idx":1,"name":"alice"},{"idx":2,"name":"bob"}],
		"vehicles": {
			"1": {"player_id":1,"vehicle_type":"spg","health":1,
				"spawn_position":{"x":-3,"y":3,"z":0},"position":{"x":-2,"y":2,"z":0},
				"capture_points":0,"shoot_range_bonus":0}
		}
	}`))
	require.NoError(t, err)
	assert.Equal(t, 3, s.CurrentTurn)
	require.Contains(t, s.Vehicles, "1")
	assert.Equal(t, hex.Hex{Q: -2, R: 2, S: 0}, s.Vehicles["1"].Position)
}

func TestParseGameState_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"non numeric key", `{"players":[{"idx":1}],"vehicles":{"a":{"player_id":1}}}`},
		{"unknown owner", `{"players":[{"idx":1}],"vehicles":{"4":{"player_id":9}}}`},
		{"not an object", `"state"`},
	}

	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseGameState([]byte(tt.raw))
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestParseGameState_EmptyVehicles(t *testing.T) {
	s, err := newTestParser().ParseGameState([]byte(`{"players":[]}`))
	require.NoError(t, err)
	assert.NotNil(t, s.Vehicles)
}
