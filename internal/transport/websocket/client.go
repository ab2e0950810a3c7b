// Package websocket is the game server transport: one socket per
// participant carrying actions out and snapshots in.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hexforge/tankbot/internal/parser"
	"github.com/hexforge/tankbot/internal/transport"
	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/streaming"
)

var (
	_ transport.Transport   = (*Client)(nil)
	_ transport.StateSource = (*Client)(nil)
)

// ErrClosed is returned by Next once the client is closed.
var ErrClosed = errors.New("websocket client closed")

// Config holds the transport settings.
type Config struct {
	URL string
	// ActionsPerSecond caps outgoing messages; zero means unlimited.
	ActionsPerSecond float64
}

// Client is a participant's connection to the game server.
type Client struct {
	conn   *connection
	cfg    Config
	parser *parser.Parser
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "transport")
	return &Client{
		conn:   newConnection(cfg.ActionsPerSecond, logger),
		cfg:    cfg,
		parser: parser.NewParser(logger),
		logger: logger,
	}
}

// Connect dials the server.
func (c *Client) Connect() error {
	return c.conn.dial(c.cfg.URL)
}

func (c *Client) Close() error {
	return c.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	env := streaming.Envelope{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		env.Payload = raw
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

func (c *Client) sendEnvelope(msgType string, payload any) {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		c.logger.Error("dropping action", "type", msgType, "error", err)
		return
	}
	c.conn.send(data)
}

func (c *Client) sendEnvelopeAndWait(ctx context.Context, msgType string, payload any) (streaming.AckMessage, error) {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return streaming.AckMessage{}, err
	}
	return c.conn.sendAndWait(ctx, data, msgType, ackTimeout)
}

// Login registers the participant and caches the login for reconnects.
func (c *Client) Login(ctx context.Context, req streaming.LoginPayload) (streaming.LoginResponse, error) {
	data, err := marshalEnvelope(streaming.TypeLogin, req)
	if err != nil {
		return streaming.LoginResponse{}, err
	}

	c.conn.mu.Lock()
	c.conn.cachedLogin = data
	c.conn.mu.Unlock()

	ack, err := c.conn.sendAndWait(ctx, data, streaming.TypeLogin, ackTimeout)
	if err != nil {
		return streaming.LoginResponse{}, fmt.Errorf("login %s: %w", req.Name, err)
	}
	resp, err := c.parser.ParseLogin(ack.Payload)
	if err != nil {
		return resp, err
	}
	c.logger.Info("logged in", "idx", resp.Idx, "name", resp.Name, "observer", resp.IsObserver)
	return resp, nil
}

// Logout tells the server the participant is leaving.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.sendEnvelopeAndWait(ctx, streaming.TypeLogout, nil)
	return err
}

// Map requests the static layout. The server either returns it in the ack
// or pushes a separate map message.
func (c *Client) Map(ctx context.Context) (core.GameMap, error) {
	ack, err := c.sendEnvelopeAndWait(ctx, streaming.TypeMap, nil)
	if err != nil {
		return core.GameMap{}, err
	}
	raw := ack.Payload
	if len(raw) == 0 {
		select {
		case raw = <-c.conn.mapCh:
		case <-ctx.Done():
			return core.GameMap{}, ctx.Err()
		}
	}
	return c.parser.ParseMap(raw)
}

func (c *Client) Move(a core.MoveAction) {
	c.sendEnvelope(streaming.TypeMove, a)
}

func (c *Client) Shoot(a core.ShootAction) {
	c.sendEnvelope(streaming.TypeShoot, a)
}

func (c *Client) Turn() {
	c.sendEnvelope(streaming.TypeTurn, nil)
}

// Next blocks for the next pushed snapshot. Snapshots that fail to parse
// are logged and skipped.
func (c *Client) Next(ctx context.Context) (core.GameState, error) {
	for {
		select {
		case raw := <-c.conn.stateCh:
			state, err := c.parser.ParseGameState(raw)
			if err != nil {
				c.logger.Warn("skipping game state", "error", err)
				continue
			}
			return state, nil
		case <-ctx.Done():
			return core.GameState{}, ctx.Err()
		case <-c.conn.ctx.Done():
			return core.GameState{}, ErrClosed
		}
	}
}
