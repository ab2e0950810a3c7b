package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/hexforge/tankbot/pkg/streaming"
)

const (
	sendChSize   = 1024
	ackChSize    = 16
	stateChSize  = 64
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
)

// First reconnect delay; doubled per failed attempt. Lowered in tests.
var reconnectBackoff = time.Second

// connection owns the socket. A single write loop lives as long as the
// connection and follows the current socket; each socket gets its own read
// loop. Callers only touch the channels.
type connection struct {
	mu           sync.Mutex
	conn         *ws.Conn
	up           chan struct{} // closed while conn is set
	closed       bool
	reconnecting bool

	sendCh  chan []byte
	ackCh   chan streaming.AckMessage
	stateCh chan json.RawMessage
	mapCh   chan json.RawMessage

	ctx    context.Context
	cancel context.CancelFunc

	wsURL   string
	limiter *rate.Limiter

	// Login is replayed after a reconnect so the server re-binds the
	// participant to this socket.
	cachedLogin []byte

	logger *slog.Logger
}

func newConnection(perSecond float64, logger *slog.Logger) *connection {
	ctx, cancel := context.WithCancel(context.Background())
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &connection{
		sendCh:  make(chan []byte, sendChSize),
		ackCh:   make(chan streaming.AckMessage, ackChSize),
		stateCh: make(chan json.RawMessage, stateChSize),
		mapCh:   make(chan json.RawMessage, 1),
		up:      make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

func (c *connection) dial(rawURL string) error {
	c.wsURL = rawURL

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.setConn(conn)
	c.mu.Unlock()

	go c.writeLoop()
	go c.readLoop(conn)
	return nil
}

// setConn installs conn and wakes the write loop. Must be called with mu
// held and no current socket.
func (c *connection) setConn(conn *ws.Conn) {
	c.conn = conn
	close(c.up)
}

// clearConn drops the current socket. Must be called with mu held.
func (c *connection) clearConn() {
	if c.conn == nil {
		return
	}
	_ = c.conn.Close()
	c.conn = nil
	c.up = make(chan struct{})
}

// active blocks until a socket is up. It returns false once the
// connection is closed.
func (c *connection) active() (*ws.Conn, bool) {
	for {
		if c.ctx.Err() != nil {
			return nil, false
		}
		c.mu.Lock()
		conn, up := c.conn, c.up
		c.mu.Unlock()
		if conn != nil {
			return conn, true
		}
		select {
		case <-up:
		case <-c.ctx.Done():
			return nil, false
		}
	}
}

func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	conn, _, err := ws.DefaultDialer.DialContext(c.ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// writeLoop drains sendCh at the configured action rate. It is the only
// data writer. While a reconnect is in progress it holds the next message
// until a socket is up again.
func (c *connection) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.sendCh:
			if err := c.limiter.Wait(c.ctx); err != nil {
				return
			}

			conn, ok := c.active()
			if !ok {
				return
			}

			err := conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err == nil {
				err = conn.WriteMessage(ws.TextMessage, data)
			}
			if err != nil {
				if c.ctx.Err() != nil {
					return
				}
				c.logger.Warn("websocket write error, message dropped", "error", err)
				go c.reconnect(conn)
			}
		}
	}
}

// readLoop routes acks to ackCh, game states to stateCh and pushed
// layouts to mapCh until conn fails.
func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.logger.Warn("websocket read error", "error", err)
			c.reconnect(conn)
			return
		}

		var env struct {
			streaming.AckMessage
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(message, &env); err != nil {
			c.logger.Debug("unreadable message", "raw", string(message))
			continue
		}

		switch env.Type {
		case streaming.TypeAck:
			ack := env.AckMessage
			ack.Payload = env.Payload
			select {
			case c.ackCh <- ack:
			default:
				c.logger.Debug("ack channel full, dropping", "for", ack.For)
			}
		case streaming.TypeGameState:
			select {
			case c.stateCh <- env.Payload:
			case <-c.ctx.Done():
				return
			}
		case streaming.TypeMap:
			select {
			case c.mapCh <- env.Payload:
			default:
				c.logger.Debug("layout already pending, dropping")
			}
		case streaming.TypeError:
			c.logger.Warn("server error", "for", env.For, "error", env.Error)
		default:
			c.logger.Debug("ignored message", "type", env.Type)
		}
	}
}

// reconnect replaces failed with a fresh socket. It re-dials with
// exponential backoff, replays the login and starts a read loop for the new
// socket. Reports about a socket that is no longer current are ignored, and
// only one reconnect runs at a time.
func (c *connection) reconnect(failed *ws.Conn) {
	c.mu.Lock()
	if c.closed || c.reconnecting || c.conn != failed {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.clearConn()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	backoff := reconnectBackoff
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		c.logger.Info("reconnecting", "attempt", attempt, "backoff", backoff)
		select {
		case <-c.ctx.Done():
			return
		case <-time.After(backoff):
		}

		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("reconnect dial failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		c.mu.Lock()
		cached := c.cachedLogin
		c.mu.Unlock()

		// The socket is not published yet, so this write has no competitor.
		if cached != nil {
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err == nil {
				err = conn.WriteMessage(ws.TextMessage, cached)
			}
			if err != nil {
				c.logger.Warn("login replay failed", "error", err)
				_ = conn.Close()
				continue
			}
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.setConn(conn)
		c.mu.Unlock()

		c.logger.Info("reconnected", "attempt", attempt)
		go c.readLoop(conn)
		return
	}

	c.logger.Error("reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

// send queues data for the write loop and drops it when the queue is full.
func (c *connection) send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.logger.Warn("send channel full, dropping message")
	}
}

// sendAndWait sends data and blocks until the matching ack arrives.
func (c *connection) sendAndWait(ctx context.Context, data []byte, ackFor string, timeout time.Duration) (streaming.AckMessage, error) {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.ackCh:
			if ack.For != ackFor {
				continue
			}
			if ack.Error != "" {
				return ack, fmt.Errorf("%s rejected: %s", ackFor, ack.Error)
			}
			return ack, nil
		case <-timer.C:
			return streaming.AckMessage{}, fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-ctx.Done():
			return streaming.AckMessage{}, ctx.Err()
		case <-c.ctx.Done():
			return streaming.AckMessage{}, fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cancel()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		// WriteControl may run alongside the write loop.
		_ = conn.WriteControl(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		return conn.Close()
	}
	return nil
}
