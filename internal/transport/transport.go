// Package transport carries actions to the game server and snapshots back.
package transport

import (
	"context"
	"sync"

	"github.com/hexforge/tankbot/pkg/core"
)

// Transport submits a participant's actions. Calls are fire-and-forget:
// delivery problems are the transport's own business.
type Transport interface {
	Move(core.MoveAction)
	Shoot(core.ShootAction)
	Turn()
}

// StateSource yields authoritative snapshots, one per turn.
type StateSource interface {
	Next(ctx context.Context) (core.GameState, error)
}

// Call is one recorded action.
type Call struct {
	Kind  core.ActionKind
	Move  *core.MoveAction
	Shoot *core.ShootAction
}

// Recorder is a Transport that keeps every call in memory.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Move(a core.MoveAction) {
	r.append(Call{Kind: core.ActionMove, Move: &a})
}

func (r *Recorder) Shoot(a core.ShootAction) {
	r.append(Call{Kind: core.ActionShoot, Shoot: &a})
}

func (r *Recorder) Turn() {
	r.append(Call{Kind: core.ActionTurnEnd})
}

func (r *Recorder) append(c Call) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Kinds returns the kind of every recorded call in order.
func (r *Recorder) Kinds() []core.ActionKind {
	calls := r.Calls()
	out := make([]core.ActionKind, len(calls))
	for i, c := range calls {
		out[i] = c.Kind
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

// Primed returns src with first delivered ahead of everything src yields.
// The client uses it to hand the snapshot it built the map from back to
// the orchestrator.
func Primed(first core.GameState, src StateSource) StateSource {
	return &primed{first: &first, src: src}
}

type primed struct {
	mu    sync.Mutex
	first *core.GameState
	src   StateSource
}

func (p *primed) Next(ctx context.Context) (core.GameState, error) {
	p.mu.Lock()
	first := p.first
	p.first = nil
	p.mu.Unlock()
	if first != nil {
		return *first, nil
	}
	return p.src.Next(ctx)
}
