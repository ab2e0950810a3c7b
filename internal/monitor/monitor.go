package monitor

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/hexforge/tankbot/internal/influx"
	"github.com/hexforge/tankbot/internal/logging"
	"github.com/hexforge/tankbot/internal/match"
	"github.com/hexforge/tankbot/internal/player"
)

// Agent is the view of a local participant the monitor reports on.
type Agent interface {
	ID() int
	Name() string
	State() player.State
}

// PointWriter is the part of the influx manager the monitor uses.
type PointWriter interface {
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager *logging.SlogManager
	Match      *match.Context
	Agents     []Agent
	// Influx is optional.
	Influx PointWriter
	// Pending reports rows waiting for storage; optional.
	Pending func() int
}

// AgentStatus is one agent in a status report.
type AgentStatus struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// Status is the snapshot served on /status and logged on every tick.
type Status struct {
	Session    string        `json:"session"`
	MatchID    uint          `json:"matchId"`
	Game       string        `json:"game"`
	Turn       uint64        `json:"turn"`
	GameTurn   int           `json:"gameTurn"`
	Owner      int           `json:"owner"`
	Finished   bool          `json:"finished"`
	Agents     []AgentStatus `json:"agents"`
	Pending    int           `json:"pending"`
	Goroutines int           `json:"goroutines"`
	HeapBytes  uint64        `json:"heapBytes"`
	Uptime     string        `json:"uptime"`
}

// Service manages status monitoring
type Service struct {
	deps    Dependencies
	started time.Time

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
	server    *http.Server
}

func NewService(deps Dependencies) *Service {
	return &Service{
		deps:    deps,
		started: time.Now(),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// GetStatus collects the current program status.
func (s *Service) GetStatus() Status {
	turn, gameTurn := s.deps.Match.Turn()
	m := s.deps.Match.GetMatch()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	st := Status{
		Session:    s.deps.Match.Session().String(),
		MatchID:    m.ID,
		Game:       m.GameName,
		Turn:       turn.Number,
		GameTurn:   gameTurn,
		Owner:      turn.Owner,
		Finished:   s.deps.Match.Finished(),
		Agents:     make([]AgentStatus, 0, len(s.deps.Agents)),
		Goroutines: runtime.NumGoroutine(),
		HeapBytes:  mem.HeapAlloc,
		Uptime:     time.Since(s.started).Round(time.Second).String(),
	}
	for _, a := range s.deps.Agents {
		st.Agents = append(st.Agents, AgentStatus{ID: a.ID(), Name: a.Name(), State: a.State().String()})
	}
	if s.deps.Pending != nil {
		st.Pending = s.deps.Pending()
	}
	return st
}

// Router serves /healthz and /status.
func (s *Service) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.GetStatus())
	})
	return r
}

// tick logs the status and samples it to influx.
func (s *Service) tick() {
	st := s.GetStatus()
	logger := s.deps.LogManager.Logger()

	states := make(map[string]string, len(st.Agents))
	for _, a := range st.Agents {
		states[a.Name] = a.State
	}
	logger.Info("status",
		"turn", st.Turn,
		"game_turn", st.GameTurn,
		"owner", st.Owner,
		"agents", states,
		"pending", st.Pending,
		"goroutines", st.Goroutines,
	)

	if s.deps.Influx != nil {
		p := influx.StatusPoint(st.Session, st.Turn, st.Owner, st.Goroutines, st.HeapBytes)
		if err := s.deps.Influx.WritePoint(influx.BucketPerformance, p); err != nil {
			logger.Warn("status point not written", "error", err)
		}
	}
}

// Start runs the status tick every interval and, when addr is not empty,
// the HTTP endpoint.
func (s *Service) Start(addr string, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	if interval <= 0 {
		return errors.New("status interval must be positive")
	}

	if addr != "" {
		s.server = &http.Server{Addr: addr, Handler: s.Router(), ReadHeaderTimeout: 5 * time.Second}
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.deps.LogManager.Logger().Error("status endpoint failed", "addr", srv.Addr, "error", err)
			}
		}(s.server)
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	go func(stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}(s.stopChan, s.done)
	return nil
}

// Stop ends the tick and shuts the endpoint down.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return nil
	}
	s.isRunning = false
	close(s.stopChan)
	<-s.done

	if s.server != nil {
		err := s.server.Shutdown(ctx)
		s.server = nil
		return err
	}
	return nil
}
