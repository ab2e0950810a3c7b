package gormstore

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hexforge/tankbot/internal/model"
	"github.com/hexforge/tankbot/internal/model/convert"
	"github.com/hexforge/tankbot/pkg/core"
)

// ErrMatchNotFound is returned by LoadMatch for an unknown id.
var ErrMatchNotFound = errors.New("match not found")

// Recorded is everything stored for one match, in write order.
type Recorded struct {
	Match   core.Match
	Turns   []core.TurnRecord
	Actions []core.ActionRecord
	Tanks   []core.TankState
}

// LoadMatch reads a match and all its rows back into core types.
func LoadMatch(db *gorm.DB, id uint) (Recorded, error) {
	var rec Recorded

	var m model.Match
	err := db.Preload("Participants").First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rec, fmt.Errorf("match %d: %w", id, ErrMatchNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("loading match %d: %w", id, err)
	}
	rec.Match = convert.MatchToCore(m)

	var turns []model.TurnRecord
	if err := db.Where("match_id = ?", id).Order("id").Find(&turns).Error; err != nil {
		return rec, fmt.Errorf("loading turns of match %d: %w", id, err)
	}
	for _, t := range turns {
		rec.Turns = append(rec.Turns, convert.TurnRecordToCore(t))
	}

	var actions []model.ActionRecord
	if err := db.Where("match_id = ?", id).Order("id").Find(&actions).Error; err != nil {
		return rec, fmt.Errorf("loading actions of match %d: %w", id, err)
	}
	for _, a := range actions {
		rec.Actions = append(rec.Actions, convert.ActionRecordToCore(a))
	}

	var tanks []model.TankState
	if err := db.Where("match_id = ?", id).Order("id").Find(&tanks).Error; err != nil {
		return rec, fmt.Errorf("loading tank states of match %d: %w", id, err)
	}
	for _, s := range tanks {
		rec.Tanks = append(rec.Tanks, convert.TankStateToCore(s))
	}
	return rec, nil
}
