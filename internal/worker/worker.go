package worker

import (
	"errors"
	"fmt"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/hexforge/tankbot/internal/logging"
	"github.com/hexforge/tankbot/internal/match"
	"github.com/hexforge/tankbot/internal/storage"
	"github.com/hexforge/tankbot/pkg/core"
)

// ErrUnexpectedPayload is returned when an event carries the wrong type.
var ErrUnexpectedPayload = errors.New("unexpected event payload")

// PointWriter is the part of the influx manager the workers use.
type PointWriter interface {
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the worker manager.
type Dependencies struct {
	LogManager *logging.SlogManager
	Match      *match.Context
	// Influx is optional.
	Influx PointWriter
}

// Manager moves published match events into storage and metrics.
type Manager struct {
	deps    Dependencies
	backend storage.Backend
}

func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

// StartMatch hands the match to the backend, which assigns its id.
func (m *Manager) StartMatch(match *core.Match) error {
	if err := m.backend.StartMatch(match); err != nil {
		return fmt.Errorf("start match: %w", err)
	}
	if m.deps.Match != nil {
		m.deps.Match.SetMatch(match)
	}
	return nil
}

// EndMatch finalizes the backend. Call it after the dispatcher has been
// closed so every buffered event is already stored.
func (m *Manager) EndMatch() error {
	if err := m.backend.EndMatch(); err != nil {
		return fmt.Errorf("end match: %w", err)
	}
	return nil
}

// ExportedFile returns the replay path when the backend wrote one.
func (m *Manager) ExportedFile() (string, core.UploadMetadata, bool) {
	u, ok := m.backend.(storage.Uploadable)
	if !ok || u.GetExportedFilePath() == "" {
		return "", core.UploadMetadata{}, false
	}
	return u.GetExportedFilePath(), u.GetExportMetadata(), true
}
