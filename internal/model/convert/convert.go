package convert

import (
	"encoding/json"
	"time"

	"github.com/hexforge/tankbot/internal/model"
	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/hex"
)

// MatchToCore converts a GORM Match back to a core.Match. A layout that
// fails to decode is left empty.
func MatchToCore(m model.Match) core.Match {
	out := core.Match{
		ID:         m.ID,
		SessionID:  m.SessionID,
		GameName:   m.GameName,
		MapName:    m.MapName,
		MapSize:    m.MapSize,
		NumPlayers: m.NumPlayers,
		NumTurns:   m.NumTurns,
		StartTime:  m.StartTime,
	}
	if m.EndTime.Valid {
		out.EndTime = m.EndTime.Time
	}
	if len(m.Layout) > 0 {
		_ = json.Unmarshal(m.Layout, &out.Layout)
	}
	for _, p := range m.Participants {
		out.Players = append(out.Players, core.PlayerInfo{
			Idx:        p.Idx,
			Name:       p.Name,
			IsObserver: p.IsObserver,
		})
	}
	return out
}

func TurnRecordToCore(r model.TurnRecord) core.TurnRecord {
	return core.TurnRecord{
		Turn:       r.Turn,
		GameTurn:   r.GameTurn,
		Owner:      r.Owner,
		Reconciled: r.Reconciled,
		Duration:   time.Duration(float64(r.DurationMs) * float64(time.Millisecond)),
		Time:       r.Time,
	}
}

func ActionRecordToCore(a model.ActionRecord) core.ActionRecord {
	out := core.ActionRecord{
		Turn:      a.Turn,
		GameTurn:  a.GameTurn,
		PlayerID:  a.PlayerID,
		Kind:      core.ActionKind(a.Kind),
		VehicleID: a.VehicleID,
		Time:      a.Time,
	}
	if len(a.Target) > 0 && string(a.Target) != "null" {
		var h hex.Hex
		if err := json.Unmarshal(a.Target, &h); err == nil {
			out.Target = &h
		}
	}
	if len(a.Affected) > 0 {
		_ = json.Unmarshal(a.Affected, &out.Affected)
	}
	return out
}

func TankStateToCore(s model.TankState) core.TankState {
	return core.TankState{
		Turn:          s.Turn,
		GameTurn:      s.GameTurn,
		VehicleID:     s.VehicleID,
		PlayerID:      s.PlayerID,
		Position:      hex.Hex{Q: s.Q, R: s.R, S: s.S},
		Health:        s.Health,
		CapturePoints: s.CapturePoints,
		Time:          s.Time,
	}
}
