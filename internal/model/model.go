package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels lists every table of the replay schema in migration order.
var DatabaseModels = []any{
	&BotInfo{},
	&Match{},
	&Participant{},
	&TurnRecord{},
	&ActionRecord{},
	&TankState{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// BotInfo identifies the client build that wrote the database.
type BotInfo struct {
	gorm.Model
	Name    string `json:"name" gorm:"size:64"`
	Version string `json:"version" gorm:"size:64"`
}

func (*BotInfo) TableName() string {
	return "bot_infos"
}

////////////////////////
// MATCH
////////////////////////

// Match is one recorded game.
type Match struct {
	gorm.Model
	SessionID    string         `json:"sessionId" gorm:"size:36;uniqueIndex"`
	GameName     string         `json:"gameName" gorm:"size:128;index"`
	MapName      string         `json:"mapName" gorm:"size:128"`
	MapSize      int            `json:"mapSize"`
	NumPlayers   int            `json:"numPlayers"`
	NumTurns     int            `json:"numTurns"`
	StartTime    time.Time      `json:"startTime" gorm:"type:timestamptz"`
	EndTime      sql.NullTime   `json:"endTime" gorm:"type:timestamptz"`
	Layout       datatypes.JSON `json:"layout"`
	Participants []Participant  `json:"participants" gorm:"foreignKey:MatchID"`
}

func (*Match) TableName() string {
	return "matches"
}

// Participant is a player or observer of a match.
type Participant struct {
	ID         uint   `json:"id" gorm:"primarykey;autoIncrement"`
	MatchID    uint   `json:"matchId" gorm:"index:idx_participant_match_id"`
	Idx        int    `json:"idx"`
	Name       string `json:"name" gorm:"size:64"`
	IsObserver bool   `json:"isObserver"`
}

func (*Participant) TableName() string {
	return "participants"
}

////////////////////////
// TURN DATA
////////////////////////

// TurnRecord is one reconciliation cycle.
type TurnRecord struct {
	ID         uint      `json:"id" gorm:"primarykey;autoIncrement"`
	Time       time.Time `json:"time" gorm:"type:timestamptz"`
	MatchID    uint      `json:"matchId" gorm:"index:idx_turn_match_id"`
	Match      Match     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Turn       uint64    `json:"turn" gorm:"index:idx_turn_turn"`
	GameTurn   int       `json:"gameTurn"`
	Owner      int       `json:"owner"`
	Reconciled int       `json:"reconciled"`
	DurationMs float32   `json:"durationMs"`
}

func (*TurnRecord) TableName() string {
	return "turn_records"
}

// ActionRecord is one action a local participant sent.
// Target is null for turn_end; Affected is a JSON array of vehicle ids.
type ActionRecord struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement"`
	Time      time.Time      `json:"time" gorm:"type:timestamptz"`
	MatchID   uint           `json:"matchId" gorm:"index:idx_action_match_id"`
	Match     Match          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Turn      uint64         `json:"turn" gorm:"index:idx_action_turn"`
	GameTurn  int            `json:"gameTurn"`
	PlayerID  int            `json:"playerId" gorm:"index:idx_action_player_id"`
	Kind      string         `json:"kind" gorm:"size:16"`
	VehicleID int            `json:"vehicleId"`
	Target    datatypes.JSON `json:"target"`
	Affected  datatypes.JSON `json:"affected"`
}

func (*ActionRecord) TableName() string {
	return "action_records"
}

// TankState is a tank as the server reported it after a turn.
type TankState struct {
	ID            uint      `json:"id" gorm:"primarykey;autoIncrement"`
	Time          time.Time `json:"time" gorm:"type:timestamptz"`
	MatchID       uint      `json:"matchId" gorm:"index:idx_tankstate_match_id"`
	Match         Match     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Turn          uint64    `json:"turn" gorm:"index:idx_tankstate_turn"`
	GameTurn      int       `json:"gameTurn"`
	VehicleID     int       `json:"vehicleId" gorm:"index:idx_tankstate_vehicle_id"`
	PlayerID      int       `json:"playerId"`
	Q             int       `json:"q"`
	R             int       `json:"r"`
	S             int       `json:"s"`
	Health        int       `json:"health"`
	CapturePoints int       `json:"capturePoints"`
}

func (*TankState) TableName() string {
	return "tank_states"
}
