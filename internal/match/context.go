package match

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/hexforge/tankbot/internal/scheduler"
	"github.com/hexforge/tankbot/pkg/core"
)

// Context holds the current match and where play currently is. It is read
// by logging, the monitor and the workers, and written by the orchestrator.
type Context struct {
	mu       sync.RWMutex
	session  uuid.UUID
	match    *core.Match
	turn     scheduler.Turn
	gameTurn int
	finished bool
}

// NewContext creates a Context with a fresh session id and no match.
func NewContext() *Context {
	return &Context{
		session: uuid.New(),
		match:   &core.Match{GameName: "No match loaded"},
	}
}

func (c *Context) Session() uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Context) GetMatch() *core.Match {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.match
}

// SetMatch installs m and stamps it with the session id.
func (c *Context) SetMatch(m *core.Match) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m.SessionID = c.session.String()
	c.match = m
	c.turn = scheduler.Turn{}
	c.gameTurn = 0
	c.finished = false
}

// SetTurn records the turn handed out by the scheduler and the server's
// turn counter it belongs to.
func (c *Context) SetTurn(t scheduler.Turn, gameTurn int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turn = t
	c.gameTurn = gameTurn
}

func (c *Context) Turn() (scheduler.Turn, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.turn, c.gameTurn
}

func (c *Context) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished = true
}

func (c *Context) Finished() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.finished
}

// LogAttrs implements logging.TurnInfo.
func (c *Context) LogAttrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.match.ID == 0 && c.turn.Number == 0 {
		return nil
	}
	return []slog.Attr{
		slog.Uint64("match", uint64(c.match.ID)),
		slog.Uint64("turn", c.turn.Number),
		slog.Int("owner", c.turn.Owner),
	}
}
