// Package storage defines where match replays go.
package storage

import "github.com/hexforge/tankbot/pkg/core"

// Backend is the interface all storage implementations must satisfy.
// Calls arrive from the dispatcher's buffered workers, never from the
// turn loop.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Match management. StartMatch assigns m.ID.
	StartMatch(m *core.Match) error
	EndMatch() error

	// Recording
	RecordTurn(r *core.TurnRecord) error
	RecordAction(a *core.ActionRecord) error
	RecordTankState(s *core.TankState) error
}

// Uploadable is an optional interface for backends that produce a replay
// file suitable for upload to the replay server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
