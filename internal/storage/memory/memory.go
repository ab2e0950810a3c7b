// Package memory keeps a match in memory and writes it out as a JSON
// replay when the match ends.
package memory

import (
	"sync"
	"time"

	"github.com/hexforge/tankbot/internal/config"
	"github.com/hexforge/tankbot/pkg/core"
)

// Backend stores match data in memory and exports to JSON.
type Backend struct {
	cfg   config.MemoryConfig
	match *core.Match

	turns   []core.TurnRecord
	actions []core.ActionRecord
	tanks   []core.TankState

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

func (b *Backend) Init() error {
	return nil
}

func (b *Backend) Close() error {
	return nil
}

// StartMatch begins recording a new match and drops anything recorded
// for the previous one.
func (b *Backend) StartMatch(m *core.Match) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	m.ID = b.idCounter
	b.match = m
	b.turns = nil
	b.actions = nil
	b.tanks = nil
	return nil
}

// EndMatch finalizes and exports the match data.
func (b *Backend) EndMatch() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.match == nil {
		return nil
	}
	if b.match.EndTime.IsZero() {
		b.match.EndTime = time.Now()
	}
	return b.exportJSON()
}

func (b *Backend) RecordTurn(r *core.TurnRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.turns = append(b.turns, *r)
	return nil
}

func (b *Backend) RecordAction(a *core.ActionRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.actions = append(b.actions, *a)
	return nil
}

func (b *Backend) RecordTankState(s *core.TankState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tanks = append(b.tanks, *s)
	return nil
}

// Counts reports how many rows of each kind are held.
func (b *Backend) Counts() (turns, actions, tanks int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.turns), len(b.actions), len(b.tanks)
}

// GetExportedFilePath returns the path of the last export.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.match == nil {
		return core.UploadMetadata{}
	}
	return core.UploadMetadata{
		GameName: b.match.GameName,
		MapName:  b.match.MapName,
		NumTurns: b.match.NumTurns,
		Tag:      "bot",
	}
}
