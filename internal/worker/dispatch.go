package worker

import (
	"errors"
	"fmt"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/hexforge/tankbot/internal/dispatcher"
	"github.com/hexforge/tankbot/internal/influx"
	"github.com/hexforge/tankbot/internal/orchestrator"
	"github.com/hexforge/tankbot/pkg/core"
)

// RegisterHandlers registers all event handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Actions - buffered, the agent never waits on storage
	d.Register(string(core.ActionMove), m.handleAction, dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(string(core.ActionShoot), m.handleAction, dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(string(core.ActionTurnEnd), m.handleAction, dispatcher.Buffered(1000), dispatcher.Logged())

	// Reconciliation output - buffered
	d.Register(orchestrator.EventReconcile, m.handleTurn, dispatcher.Buffered(500), dispatcher.Logged())
	d.Register(orchestrator.EventTankState, m.handleTankStates, dispatcher.Buffered(500), dispatcher.Logged())

	// Match end - sync, only logs the result
	d.Register(orchestrator.EventMatchEnd, m.handleMatchEnd, dispatcher.Logged())
}

func (m *Manager) session() string {
	if m.deps.Match == nil {
		return ""
	}
	return m.deps.Match.Session().String()
}

func (m *Manager) writePoint(bucket string, p *influxdb2_write.Point) {
	if m.deps.Influx == nil {
		return
	}
	if err := m.deps.Influx.WritePoint(bucket, p); err != nil {
		m.deps.LogManager.WriteLog("worker", fmt.Sprintf("influx %s/%s: %v", bucket, p.Name(), err), "WARN")
	}
}

func (m *Manager) handleAction(e dispatcher.Event) (any, error) {
	a, ok := e.Payload.(core.ActionRecord)
	if !ok {
		return nil, fmt.Errorf("action %s: %w: %T", e.Kind, ErrUnexpectedPayload, e.Payload)
	}
	if a.GameTurn == 0 && m.deps.Match != nil {
		if turn, gameTurn := m.deps.Match.Turn(); turn.Number == a.Turn {
			a.GameTurn = gameTurn
		}
	}

	if err := m.backend.RecordAction(&a); err != nil {
		return nil, fmt.Errorf("failed to record action: %w", err)
	}
	m.writePoint(influx.BucketMatches, influx.ActionPoint(m.session(), a))
	return nil, nil
}

func (m *Manager) handleTurn(e dispatcher.Event) (any, error) {
	r, ok := e.Payload.(core.TurnRecord)
	if !ok {
		return nil, fmt.Errorf("turn: %w: %T", ErrUnexpectedPayload, e.Payload)
	}
	if err := m.backend.RecordTurn(&r); err != nil {
		return nil, fmt.Errorf("failed to record turn: %w", err)
	}
	m.writePoint(influx.BucketMatches, influx.TurnPoint(m.session(), r))
	return nil, nil
}

func (m *Manager) handleTankStates(e dispatcher.Event) (any, error) {
	states, ok := e.Payload.([]core.TankState)
	if !ok {
		return nil, fmt.Errorf("tank states: %w: %T", ErrUnexpectedPayload, e.Payload)
	}
	var errs []error
	for i := range states {
		if err := m.backend.RecordTankState(&states[i]); err != nil {
			errs = append(errs, fmt.Errorf("tank %d: %w", states[i].VehicleID, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("failed to record tank states: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleMatchEnd(e dispatcher.Event) (any, error) {
	state, ok := e.Payload.(core.GameState)
	if !ok {
		return nil, fmt.Errorf("match end: %w: %T", ErrUnexpectedPayload, e.Payload)
	}
	msg := fmt.Sprintf("match over after %d game turns, no winner", state.CurrentTurn)
	if state.Winner != nil {
		msg = fmt.Sprintf("match over after %d game turns, winner %d", state.CurrentTurn, *state.Winner)
	}
	m.deps.LogManager.WriteLog("worker", msg, "INFO")
	if m.deps.Match != nil {
		m.deps.Match.Finish()
	}
	return state.Winner, nil
}
