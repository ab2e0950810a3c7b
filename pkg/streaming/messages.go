package streaming

import (
	"encoding/json"

	"github.com/hexforge/tankbot/pkg/core"
)

// Message type constants of the game server protocol.
const (
	TypeLogin     = "login"
	TypeLogout    = "logout"
	TypeMap       = "map"
	TypeGameState = "game_state"
	TypeMove      = "move"
	TypeShoot     = "shoot"
	TypeTurn      = "turn"
	TypeChat      = "chat"
	TypeAck       = "ack"
	TypeError     = "error"
)

// Envelope wraps every message exchanged with the server.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AckMessage is the server's acknowledgement. Payload carries the
// response body for request/response messages such as login and map.
type AckMessage struct {
	Type    string          `json:"type"` // always "ack"
	For     string          `json:"for"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// LoginPayload registers a participant in a game.
type LoginPayload struct {
	Name       string `json:"name"`
	Password   string `json:"password,omitempty"`
	Game       string `json:"game,omitempty"`
	NumTurns   int    `json:"num_turns,omitempty"`
	NumPlayers int    `json:"num_players,omitempty"`
	IsObserver bool   `json:"is_observer,omitempty"`
}

// LoginResponse is the ack payload of a login.
type LoginResponse struct {
	Idx        int    `json:"idx"`
	Name       string `json:"name"`
	IsObserver bool   `json:"is_observer"`
}

// GameStatePayload is pushed by the server after every turn.
type GameStatePayload = core.GameState

// MapPayload is the ack payload of a map request.
type MapPayload = core.GameMap
