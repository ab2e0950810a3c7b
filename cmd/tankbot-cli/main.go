package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/hexforge/tankbot/internal/config"
	"github.com/hexforge/tankbot/internal/database"
	"github.com/hexforge/tankbot/internal/model"
	"github.com/hexforge/tankbot/internal/model/convert"
	gormstore "github.com/hexforge/tankbot/internal/storage/gorm"
	"github.com/hexforge/tankbot/internal/storage/memory"
	"github.com/hexforge/tankbot/pkg/core"
)

var Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

const usage = `usage: tankbot-cli [flags] <command> [args]

commands:
  setupdb                 migrate the schema
  getjson <matchID...>    export recorded matches as replay files
  migratebackups [dir]    copy every match of the sqlite dumps in dir into the database
`

func main() {
	configDir := flag.String("config", ".", "directory holding tankbot.cfg.json")
	outDir := flag.String("out", "", "replay output directory (defaults to storage.memory.outputDir)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := config.Load(*configDir); err != nil {
		Logger.Warn().Err(err).Msg("Failed to load config, using defaults!")
	}

	storageCfg := config.GetStorageConfig()
	m := database.NewManager(Logger)
	if err := m.Connect(config.GetDBConfig(), storageCfg.SQLite.DumpPath); err != nil {
		Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer m.Close()

	var err error
	switch strings.ToLower(args[0]) {
	case "setupdb":
		err = m.Setup()
	case "getjson":
		ids, perr := parseIDs(args[1:])
		if perr != nil {
			Logger.Fatal().Err(perr).Msg("Invalid match id")
		}
		if len(ids) == 0 {
			Logger.Fatal().Msg("No match IDs provided.")
		}
		dir := *outDir
		if dir == "" {
			dir = storageCfg.Memory.OutputDir
		}
		var paths []string
		paths, err = exportMatches(m.DB, ids, dir, storageCfg.Memory.CompressOutput)
		for _, p := range paths {
			fmt.Println(p)
		}
	case "migratebackups":
		if m.IsSQLite {
			Logger.Fatal().Msg("migratebackups needs a postgres database")
		}
		dir := filepath.Dir(storageCfg.SQLite.DumpPath)
		if len(args) > 1 {
			dir = args[1]
		}
		err = migrateBackups(m.DB, dir)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		Logger.Fatal().Err(err).Str("command", args[0]).Msg("Command failed")
	}
}

func parseIDs(args []string) ([]uint, error) {
	ids := make([]uint, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseUint(a, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", a, err)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// exportMatches writes one replay file per match id and returns the paths.
func exportMatches(db *gorm.DB, ids []uint, dir string, compress bool) ([]string, error) {
	var paths []string
	for _, id := range ids {
		start := time.Now()
		rec, err := gormstore.LoadMatch(db, id)
		if err != nil {
			return paths, err
		}
		export := memory.BuildExport(rec.Match, rec.Turns, rec.Actions, rec.Tanks)
		path := filepath.Join(dir, memory.FileName(rec.Match, compress))
		if err := memory.WriteReplay(path, export, compress); err != nil {
			return paths, fmt.Errorf("match %d: %w", id, err)
		}
		Logger.Info().
			Uint("match", id).
			Int("turns", len(rec.Turns)).
			Int("actions", len(rec.Actions)).
			Dur("took", time.Since(start)).
			Str("path", path).
			Msg("Exported match")
		paths = append(paths, path)
	}
	return paths, nil
}

// migrateBackups copies the matches of every sqlite dump in dir into dst
// and renames each finished dump to *.migrated.
func migrateBackups(dst *gorm.DB, dir string) error {
	paths, err := database.GetBackupDBPaths(dir)
	if err != nil {
		return fmt.Errorf("listing backups in %s: %w", dir, err)
	}
	if len(paths) == 0 {
		Logger.Info().Str("dir", dir).Msg("No backups to migrate")
		return nil
	}

	for _, path := range paths {
		n, err := migrateBackup(dst, path)
		if err != nil {
			return fmt.Errorf("backup %s: %w", path, err)
		}
		if err := os.Rename(path, path+".migrated"); err != nil {
			return fmt.Errorf("renaming %s: %w", path, err)
		}
		Logger.Info().Str("path", path).Int("matches", n).Msg("Migrated backup")
	}
	return nil
}

func migrateBackup(dst *gorm.DB, path string) (int, error) {
	src, err := database.OpenSqlite(path)
	if err != nil {
		return 0, err
	}
	if sqlDB, err := src.DB(); err == nil {
		defer sqlDB.Close()
	}

	var ids []uint
	if err := src.Model(&model.Match{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("listing matches: %w", err)
	}

	copied := 0
	for _, id := range ids {
		rec, err := gormstore.LoadMatch(src, id)
		if err != nil {
			return copied, err
		}
		ok, err := copyMatch(dst, rec)
		if err != nil {
			return copied, fmt.Errorf("match %d: %w", id, err)
		}
		if ok {
			copied++
		}
	}
	return copied, nil
}

// copyMatch inserts rec under a fresh id. Matches whose session is already
// present are skipped.
func copyMatch(dst *gorm.DB, rec gormstore.Recorded) (bool, error) {
	var existing int64
	if err := dst.Model(&model.Match{}).Where("session_id = ?", rec.Match.SessionID).Count(&existing).Error; err != nil {
		return false, err
	}
	if existing > 0 {
		Logger.Debug().Str("session", rec.Match.SessionID).Msg("Match already present, skipping")
		return false, nil
	}

	err := dst.Transaction(func(tx *gorm.DB) error {
		m := convert.CoreToMatch(rec.Match)
		m.ID = 0
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		if err := createAll(tx, rec.Turns, func(r core.TurnRecord) model.TurnRecord { return convert.CoreToTurnRecord(r, m.ID) }); err != nil {
			return err
		}
		if err := createAll(tx, rec.Actions, func(a core.ActionRecord) model.ActionRecord { return convert.CoreToActionRecord(a, m.ID) }); err != nil {
			return err
		}
		return createAll(tx, rec.Tanks, func(s core.TankState) model.TankState { return convert.CoreToTankState(s, m.ID) })
	})
	return err == nil, err
}

func createAll[C, M any](tx *gorm.DB, rows []C, conv func(C) M) error {
	if len(rows) == 0 {
		return nil
	}
	out := make([]M, 0, len(rows))
	for _, r := range rows {
		out = append(out, conv(r))
	}
	return tx.CreateInBatches(out, 500).Error
}
