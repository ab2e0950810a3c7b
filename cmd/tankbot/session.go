package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hexforge/tankbot/internal/config"
	"github.com/hexforge/tankbot/internal/dispatcher"
	"github.com/hexforge/tankbot/internal/gamemap"
	"github.com/hexforge/tankbot/internal/influx"
	"github.com/hexforge/tankbot/internal/monitor"
	"github.com/hexforge/tankbot/internal/orchestrator"
	"github.com/hexforge/tankbot/internal/player"
	"github.com/hexforge/tankbot/internal/render"
	"github.com/hexforge/tankbot/internal/roster"
	"github.com/hexforge/tankbot/internal/sandbox"
	"github.com/hexforge/tankbot/internal/scenario"
	"github.com/hexforge/tankbot/internal/scheduler"
	"github.com/hexforge/tankbot/internal/storage"
	"github.com/hexforge/tankbot/internal/transport"
	"github.com/hexforge/tankbot/internal/transport/websocket"
	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/streaming"
)

// matchSession is everything one match needs once the map is built.
type matchSession struct {
	match  *core.Match
	gm     *gamemap.Map
	source transport.StateSource
	tr     transport.Transport
	agents []*player.Agent
	// seats maps local participants to their own connection (online only)
	seats map[int]transport.Transport

	// external participants read their orders from stdin
	feeds   map[int]chan []player.Order
	closers []func()
}

func (s *matchSession) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func newMatch(name string, layout core.GameMap, state core.GameState) *core.Match {
	return &core.Match{
		GameName:   name,
		MapName:    layout.Name,
		MapSize:    layout.Size,
		NumPlayers: state.NumPlayers,
		NumTurns:   state.NumTurns,
		StartTime:  time.Now(),
		Players:    state.Players,
		Layout:     layout,
	}
}

// addAgent wraps a local participant. External ones get an order feed.
func (s *matchSession) addAgent(p *roster.Player, tr transport.Transport, external bool, d *dispatcher.Dispatcher) {
	opts := []player.Option{player.WithEvents(d), player.WithLogger(Logger)}
	var strategy player.Strategy
	if external {
		ch := make(chan []player.Order, 1)
		s.feeds[p.ID] = ch
		strategy = player.NewExternal(s.gm, p, tr, ch, opts...)
	} else {
		strategy = player.NewBot(s.gm, p, tr, opts...)
	}
	s.agents = append(s.agents, player.NewAgent(p.ID, p.Name, strategy, Logger))
	Logger.Info("Local participant ready", "player", p.ID, "name", p.Name, "external", external, "tanks", len(p.Tanks()))
}

// offlineSession plays a scenario file against the sandbox; every active
// participant is a local bot.
func offlineSession(ctx context.Context, path string, d *dispatcher.Dispatcher) (*matchSession, error) {
	sc, err := scenario.Load(path)
	if err != nil {
		return nil, err
	}
	srv, err := sandbox.New(sc.Map, sc.State, Logger)
	if err != nil {
		return nil, fmt.Errorf("sandbox: %w", err)
	}

	opening := srv.State()
	players := roster.FromState(opening)
	gm, err := gamemap.Build(srv.Layout(), opening, players)
	if err != nil {
		return nil, fmt.Errorf("building map: %w", err)
	}

	s := &matchSession{
		match:  newMatch(sc.Name, srv.Layout(), opening),
		gm:     gm,
		source: srv,
		tr:     srv,
		feeds:  make(map[int]chan []player.Order),
	}
	for _, p := range players.Active() {
		s.addAgent(p, srv, false, d)
	}
	Logger.Info("Offline scenario loaded", "scenario", sc.Name, "map", gm.Name(), "players", len(s.agents))
	return s, nil
}

// onlineSession logs every configured player in over its own connection.
// The first connection feeds the orchestrator; the others only carry
// their player's actions.
func onlineSession(ctx context.Context, d *dispatcher.Dispatcher) (*matchSession, error) {
	srvCfg := config.GetServerConfig()
	cfgPlayers, err := config.GetPlayers()
	if err != nil {
		return nil, err
	}
	if len(cfgPlayers) == 0 {
		return nil, errors.New("no players configured")
	}

	s := &matchSession{
		feeds: make(map[int]chan []player.Order),
		seats: make(map[int]transport.Transport),
	}
	clients := make([]*websocket.Client, 0, len(cfgPlayers))
	logins := make([]streaming.LoginResponse, 0, len(cfgPlayers))

	for _, pc := range cfgPlayers {
		c := websocket.New(websocket.Config{URL: srvCfg.URL, ActionsPerSecond: srvCfg.ActionsPerSecond}, Logger.With("login", pc.Name))
		if err := c.Connect(); err != nil {
			s.close()
			return nil, fmt.Errorf("connecting %s: %w", pc.Name, err)
		}
		s.closers = append(s.closers, func() {
			logoutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := c.Logout(logoutCtx); err != nil {
				Logger.Debug("Logout failed", "player", pc.Name, "error", err)
			}
			_ = c.Close()
		})

		resp, err := c.Login(ctx, streaming.LoginPayload{
			Name:       pc.Name,
			Password:   pc.Password,
			Game:       srvCfg.Game,
			NumTurns:   srvCfg.NumTurns,
			NumPlayers: srvCfg.NumPlayers,
			IsObserver: pc.Observer,
		})
		if err != nil {
			s.close()
			return nil, fmt.Errorf("login %s: %w", pc.Name, err)
		}
		Logger.Info("Logged in", "player", resp.Idx, "name", resp.Name, "observer", resp.IsObserver)
		clients = append(clients, c)
		logins = append(logins, resp)
	}

	primary := clients[0]
	layout, err := primary.Map(ctx)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("map: %w", err)
	}
	opening, err := primary.Next(ctx)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("first snapshot: %w", err)
	}

	players := roster.FromState(opening)
	s.gm, err = gamemap.Build(layout, opening, players)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("building map: %w", err)
	}
	s.match = newMatch(srvCfg.Game, layout, opening)
	s.source = transport.Primed(opening, primary)
	s.tr = primary

	for i, resp := range logins {
		if i > 0 {
			drainCtx, cancel := context.WithCancel(ctx)
			go drain(drainCtx, clients[i])
			s.closers = append(s.closers, cancel)
		}
		if resp.IsObserver {
			continue
		}
		p, ok := players.Get(resp.Idx)
		if !ok {
			s.close()
			return nil, fmt.Errorf("player %d: %w", resp.Idx, gamemap.ErrUnknownPlayer)
		}
		s.addAgent(p, clients[i], cfgPlayers[i].External, d)
		s.seats[p.ID] = clients[i]
	}
	return s, nil
}

// drain keeps a secondary connection's snapshot queue empty.
func drain(ctx context.Context, c *websocket.Client) {
	for {
		if _, err := c.Next(ctx); err != nil {
			return
		}
	}
}

// play runs the orchestrator until the match ends or ctx is cancelled.
func (s *matchSession) play(ctx context.Context, d *dispatcher.Dispatcher) error {
	opts := []orchestrator.Option{
		orchestrator.WithMatchContext(MatchContext),
		orchestrator.WithEvents(d),
		orchestrator.WithLogger(Logger),
	}
	if len(s.seats) > 0 {
		opts = append(opts, orchestrator.WithSeats(s.seats))
	}

	renderCfg := config.GetRenderConfig()
	if renderCfg.Enabled {
		frames, err := render.NewFrames(renderCfg.OutputDir, Logger)
		if err != nil {
			Logger.Warn("Board frames disabled", "error", err)
		} else {
			opts = append(opts, orchestrator.WithObserver(frames))
		}
	}

	if len(s.feeds) > 0 {
		feedCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := feedOrders(feedCtx, os.Stdin, s.feeds); err != nil && !errors.Is(err, context.Canceled) {
				Logger.Warn("Order feed stopped", "error", err)
			}
		}()
	}

	Logger.Info("Match starting", "game", s.match.GameName, "map", s.gm.Name(), "agents", len(s.agents))
	r := orchestrator.New(s.gm, scheduler.New(), s.source, s.tr, s.agents, opts...)
	return r.Run(ctx)
}

// startMonitor starts the status service when enabled.
func startMonitor(s *matchSession, influxManager *influx.Manager, backend storage.Backend) *monitor.Service {
	cfg := config.GetStatusConfig()
	if !cfg.Enabled {
		return nil
	}
	agents := make([]monitor.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		agents = append(agents, a)
	}
	deps := monitor.Dependencies{
		LogManager: SlogManager,
		Match:      MatchContext,
		Agents:     agents,
	}
	if influxManager != nil {
		deps.Influx = influxManager
	}
	if p, ok := backend.(interface{ Pending() int }); ok {
		deps.Pending = p.Pending
	}

	svc := monitor.NewService(deps)
	if err := svc.Start(cfg.Address, cfg.Interval); err != nil {
		Logger.Warn("Status monitor not started", "error", err)
		return nil
	}
	Logger.Info("Status monitor started", "address", cfg.Address, "interval", cfg.Interval)
	return svc
}
