// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/hexforge/tankbot/internal/model"
	"github.com/hexforge/tankbot/pkg/core"
)

// toJSON marshals v, falling back to the given literal on failure or
// when v is empty.
func toJSON(v any, empty string) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return datatypes.JSON(empty)
	}
	return datatypes.JSON(data)
}

// CoreToMatch converts a core.Match to a GORM model.Match with its participants.
func CoreToMatch(m core.Match) model.Match {
	out := model.Match{
		SessionID:  m.SessionID,
		GameName:   m.GameName,
		MapName:    m.MapName,
		MapSize:    m.MapSize,
		NumPlayers: m.NumPlayers,
		NumTurns:   m.NumTurns,
		StartTime:  m.StartTime,
		Layout:     toJSON(m.Layout, "{}"),
	}
	out.ID = m.ID
	if !m.EndTime.IsZero() {
		out.EndTime.Time = m.EndTime
		out.EndTime.Valid = true
	}
	for _, p := range m.Players {
		out.Participants = append(out.Participants, model.Participant{
			Idx:        p.Idx,
			Name:       p.Name,
			IsObserver: p.IsObserver,
		})
	}
	return out
}

func CoreToTurnRecord(r core.TurnRecord, matchID uint) model.TurnRecord {
	return model.TurnRecord{
		Time:       r.Time,
		MatchID:    matchID,
		Turn:       r.Turn,
		GameTurn:   r.GameTurn,
		Owner:      r.Owner,
		Reconciled: r.Reconciled,
		DurationMs: float32(r.Duration.Microseconds()) / 1000,
	}
}

// CoreToActionRecord converts an action. A nil target is stored as JSON null.
func CoreToActionRecord(a core.ActionRecord, matchID uint) model.ActionRecord {
	target := datatypes.JSON("null")
	if a.Target != nil {
		target = toJSON(a.Target, "null")
	}
	return model.ActionRecord{
		Time:      a.Time,
		MatchID:   matchID,
		Turn:      a.Turn,
		GameTurn:  a.GameTurn,
		PlayerID:  a.PlayerID,
		Kind:      string(a.Kind),
		VehicleID: a.VehicleID,
		Target:    target,
		Affected:  toJSON(a.Affected, "[]"),
	}
}

func CoreToTankState(s core.TankState, matchID uint) model.TankState {
	return model.TankState{
		Time:          s.Time,
		MatchID:       matchID,
		Turn:          s.Turn,
		GameTurn:      s.GameTurn,
		VehicleID:     s.VehicleID,
		PlayerID:      s.PlayerID,
		Q:             s.Position.Q,
		R:             s.Position.R,
		S:             s.Position.S,
		Health:        s.Health,
		CapturePoints: s.CapturePoints,
	}
}
