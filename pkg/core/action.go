package core

import (
	"time"

	"github.com/hexforge/tankbot/pkg/hex"
)

// MoveAction is the move payload: {"vehicle_id": int, "target": {x,y,z}}.
type MoveAction struct {
	VehicleID int     `json:"vehicle_id"`
	Target    hex.Hex `json:"target"`
}

// ShootAction is the attack payload; same shape as MoveAction.
type ShootAction struct {
	VehicleID int     `json:"vehicle_id"`
	Target    hex.Hex `json:"target"`
}

// ActionKind names an action in the replay log.
type ActionKind string

const (
	ActionMove    ActionKind = "move"
	ActionShoot   ActionKind = "shoot"
	ActionTurnEnd ActionKind = "turn_end"
)

// Match describes one recorded match.
type Match struct {
	ID         uint
	SessionID  string
	GameName   string
	MapName    string
	MapSize    int
	NumPlayers int
	NumTurns   int
	StartTime  time.Time
	EndTime    time.Time
	Players    []PlayerInfo
	Layout     GameMap
}

// ActionRecord is one speculative action as it was sent.
type ActionRecord struct {
	Turn      uint64
	GameTurn  int
	PlayerID  int
	Kind      ActionKind
	VehicleID int
	Target    *hex.Hex
	Affected  []int
	Time      time.Time
}

// TankState is a reconciled tank snapshot.
type TankState struct {
	Turn          uint64
	GameTurn      int
	VehicleID     int
	PlayerID      int
	Position      hex.Hex
	Health        int
	CapturePoints int
	Time          time.Time
}

// TurnRecord summarises one reconciliation cycle.
type TurnRecord struct {
	Turn       uint64
	GameTurn   int
	Owner      int
	Reconciled int
	Duration   time.Duration
	Time       time.Time
}

// UploadMetadata accompanies an exported replay.
type UploadMetadata struct {
	GameName string
	MapName  string
	NumTurns int
	Tag      string
}
