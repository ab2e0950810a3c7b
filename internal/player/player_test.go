package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexforge/tankbot/internal/scheduler"
)

type scriptedStrategy struct {
	played chan scheduler.Turn
	block  chan struct{}
	err    error
}

func (s *scriptedStrategy) PlayTurn(ctx context.Context, turn scheduler.Turn) error {
	s.played <- turn
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func TestAgent_PlaysOwnTurnsUntilClose(t *testing.T) {
	sched := scheduler.New()
	strat := &scriptedStrategy{played: make(chan scheduler.Turn, 4)}
	agent := NewAgent(1, "alice", strat, nil)

	done := make(chan error, 1)
	go func() { done <- agent.Run(context.Background(), sched) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for range 2 {
		turn := sched.Advance(1)
		require.NoError(t, sched.WaitIdle(ctx, turn))
		assert.Equal(t, turn, <-strat.played)
	}
	assert.Equal(t, Idle, agent.State())

	sched.Close()
	require.NoError(t, <-done)
}

func TestAgent_StateWhileActing(t *testing.T) {
	sched := scheduler.New()
	strat := &scriptedStrategy{played: make(chan scheduler.Turn, 1), block: make(chan struct{})}
	agent := NewAgent(2, "bob", strat, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx, sched) }()

	turn := sched.Advance(2)
	<-strat.played
	assert.Equal(t, Acting, agent.State())
	assert.True(t, sched.Busy())

	close(strat.block)
	require.NoError(t, sched.WaitIdle(context.Background(), turn))
	assert.False(t, sched.Busy())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestAgent_StrategyErrorDoesNotStopAgent(t *testing.T) {
	sched := scheduler.New()
	strat := &scriptedStrategy{played: make(chan scheduler.Turn, 2), err: errors.New("boom")}
	agent := NewAgent(1, "alice", strat, nil)

	done := make(chan error, 1)
	go func() { done <- agent.Run(context.Background(), sched) }()

	for range 2 {
		turn := sched.Advance(1)
		require.NoError(t, sched.WaitIdle(context.Background(), turn))
	}
	sched.Close()
	require.NoError(t, <-done)
	assert.Len(t, strat.played, 2)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "acting", Acting.String())
	assert.Equal(t, "submitted", Submitted.String())
	assert.Equal(t, "state(9)", State(9).String())
}
