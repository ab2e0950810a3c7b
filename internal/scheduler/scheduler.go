// Package scheduler serialises participant turns. The orchestrator is the
// only writer of the turn counter and the owner token; agents block in
// Acquire until the token names them.
package scheduler

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned once the match is over.
var ErrClosed = errors.New("scheduler closed")

// Turn is the token handed to the agent allowed to act.
type Turn struct {
	Number uint64
	Owner  int
}

// Scheduler is the shared turn gate.
type Scheduler struct {
	mu      sync.Mutex
	current Turn
	held    bool
	holder  uint64 // turn number of the held gate
	served  uint64 // last turn number released
	closed  bool
	changed chan struct{}
}

// New creates a scheduler with no owner; turn numbers start at 1.
func New() *Scheduler {
	return &Scheduler{changed: make(chan struct{})}
}

// broadcast wakes every waiter. Must be called with mu held.
func (s *Scheduler) broadcast() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// Advance hands the token to owner under the next turn number.
func (s *Scheduler) Advance(owner int) Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Turn{Number: s.current.Number + 1, Owner: owner}
	s.broadcast()
	return s.current
}

// Current returns the latest issued turn.
func (s *Scheduler) Current() Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Acquire blocks until the current turn belongs to id and has neither been
// taken nor released yet.
func (s *Scheduler) Acquire(ctx context.Context, id int) (Turn, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return Turn{}, ErrClosed
		}
		if s.current.Owner == id && s.current.Number > s.served && !s.held {
			s.held = true
			s.holder = s.current.Number
			t := s.current
			s.mu.Unlock()
			return t, nil
		}
		wait := s.changed
		s.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return Turn{}, ctx.Err()
		}
	}
}

// Release returns the gate after t has been played.
func (s *Scheduler) Release(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.held || t.Number != s.holder {
		return
	}
	s.held = false
	s.served = max(s.served, t.Number)
	s.broadcast()
}

// WaitIdle blocks until t has been released or the scheduler is closed.
func (s *Scheduler) WaitIdle(ctx context.Context, t Turn) error {
	for {
		s.mu.Lock()
		if s.served >= t.Number {
			s.mu.Unlock()
			return nil
		}
		if s.closed {
			s.mu.Unlock()
			return ErrClosed
		}
		wait := s.changed
		s.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Busy reports whether an agent currently holds the gate.
func (s *Scheduler) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held
}

// Close ends the match and releases every waiter.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.broadcast()
}
