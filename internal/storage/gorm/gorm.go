// Package gormstore implements the storage.Backend interface on GORM with
// internal queues and a background writer goroutine. The sqlite and
// postgres backends wrap it and only differ in how they obtain the DB.
package gormstore

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/hexforge/tankbot/internal/database"
	"github.com/hexforge/tankbot/internal/logging"
	"github.com/hexforge/tankbot/internal/model"
	"github.com/hexforge/tankbot/internal/model/convert"
	"github.com/hexforge/tankbot/internal/queue"
	"github.com/hexforge/tankbot/pkg/core"
)

const defaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	FlushInterval time.Duration
}

// queues holds the write queues for batch DB insertion. Rows are
// converted on push and stamped with the match id on write.
type queues struct {
	Turns      *queue.Queue[model.TurnRecord]
	Actions    *queue.Queue[model.ActionRecord]
	TankStates *queue.Queue[model.TankState]
}

func newQueues() *queues {
	return &queues{
		Turns:      queue.New[model.TurnRecord](),
		Actions:    queue.New[model.ActionRecord](),
		TankStates: queue.New[model.TankState](),
	}
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	deps    Dependencies
	queues  *queues
	matchID atomic.Uint64

	writeMu  sync.Mutex
	stopChan chan struct{}
	stopOnce sync.Once
	done     sync.WaitGroup
}

func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB exposes the handle for tooling that reads replays back.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend has no database")
	}

	b.log("Migrating schema", "INFO")
	if err := database.Migrate(b.deps.DB); err != nil {
		b.log(fmt.Sprintf("Failed to migrate schema: %v", err), "ERROR")
		return err
	}

	b.stopChan = make(chan struct{})
	b.done.Add(1)
	go b.writeLoop()
	return nil
}

// Close stops the writer and flushes what is left.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
			b.done.Wait()
		}
	})
	return b.Flush()
}

func (b *Backend) log(msg, level string) {
	if b.deps.LogManager != nil {
		b.deps.LogManager.WriteLog("gormstore", msg, level)
	}
}

// StartMatch inserts the match and its participants synchronously so the
// id is known before any row references it.
func (b *Backend) StartMatch(m *core.Match) error {
	if b.deps.DB == nil {
		return nil
	}

	gormMatch := convert.CoreToMatch(*m)
	gormMatch.ID = 0
	if err := b.deps.DB.Create(&gormMatch).Error; err != nil {
		return fmt.Errorf("failed to insert new match: %w", err)
	}

	m.ID = gormMatch.ID
	b.matchID.Store(uint64(gormMatch.ID))
	b.log(fmt.Sprintf("Match %d started (%s)", gormMatch.ID, gormMatch.SessionID), "INFO")
	return nil
}

// SetMatchID points the writer at an existing match (used by CLI tools).
func (b *Backend) SetMatchID(id uint) {
	b.matchID.Store(uint64(id))
}

// EndMatch flushes pending rows and stamps the end time.
func (b *Backend) EndMatch() error {
	if err := b.Flush(); err != nil {
		return err
	}
	id := uint(b.matchID.Load())
	if b.deps.DB == nil || id == 0 {
		return nil
	}
	err := b.deps.DB.Model(&model.Match{}).Where("id = ?", id).Update("end_time", time.Now()).Error
	if err != nil {
		return fmt.Errorf("failed to close match %d: %w", id, err)
	}
	return nil
}

func (b *Backend) RecordTurn(r *core.TurnRecord) error {
	b.queues.Turns.Push(convert.CoreToTurnRecord(*r, 0))
	return nil
}

func (b *Backend) RecordAction(a *core.ActionRecord) error {
	b.queues.Actions.Push(convert.CoreToActionRecord(*a, 0))
	return nil
}

func (b *Backend) RecordTankState(s *core.TankState) error {
	b.queues.TankStates.Push(convert.CoreToTankState(*s, 0))
	return nil
}

// Pending returns the number of queued rows.
func (b *Backend) Pending() int {
	return b.queues.Turns.Len() + b.queues.Actions.Len() + b.queues.TankStates.Len()
}

// writeQueue writes all items from a queue to the database in a transaction.
// A failed batch goes back to the queue for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string), prepare func([]T)) error {
	if q.Empty() {
		return nil
	}

	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}

	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log(fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.Requeue(items)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Requeue(items)
		return fmt.Errorf("committing %s: %w", name, err)
	}
	return nil
}

// Flush drains every queue into the DB now.
func (b *Backend) Flush() error {
	if b.deps.DB == nil {
		return nil
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	matchID := uint(b.matchID.Load())

	stampTurns := func(items []model.TurnRecord) {
		for i := range items {
			items[i].MatchID = matchID
		}
	}
	stampActions := func(items []model.ActionRecord) {
		for i := range items {
			items[i].MatchID = matchID
		}
	}
	stampTankStates := func(items []model.TankState) {
		for i := range items {
			items[i].MatchID = matchID
		}
	}

	return errors.Join(
		writeQueue(b.deps.DB, b.queues.Turns, "turn records", b.log, stampTurns),
		writeQueue(b.deps.DB, b.queues.Actions, "action records", b.log, stampActions),
		writeQueue(b.deps.DB, b.queues.TankStates, "tank states", b.log, stampTankStates),
	)
}

func (b *Backend) writeLoop() {
	defer b.done.Done()

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			_ = b.Flush()
		}
	}
}
