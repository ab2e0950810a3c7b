package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/hexforge/tankbot/internal/api"
	"github.com/hexforge/tankbot/internal/config"
	"github.com/hexforge/tankbot/internal/dispatcher"
	"github.com/hexforge/tankbot/internal/influx"
	"github.com/hexforge/tankbot/internal/logging"
	"github.com/hexforge/tankbot/internal/match"
	intOtel "github.com/hexforge/tankbot/internal/otel"
	"github.com/hexforge/tankbot/internal/storage"
	"github.com/hexforge/tankbot/internal/worker"
)

// BuildDate can be set at build time via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

var (
	SlogManager *logging.SlogManager
	Logger      *slog.Logger

	// ZLogger feeds the database and influx managers.
	ZLogger zerolog.Logger

	OTelProvider *intOtel.Provider
	MatchContext *match.Context

	SessionStartTime = time.Now()

	logFile io.WriteCloser
)

func main() {
	configDir := flag.String("config", ".", "directory holding tankbot.cfg.json")
	offline := flag.String("offline", "", "play a scenario file against the built-in sandbox instead of a server")
	flag.Parse()

	if err := run(*configDir, *offline); err != nil {
		if Logger != nil {
			Logger.Error("tankbot stopped", "error", err)
		}
		fmt.Fprintln(os.Stderr, "tankbot:", err)
		os.Exit(1)
	}
}

func run(configDir, offline string) error {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", configDir)
	}

	MatchContext = match.NewContext()
	if err := setupLogging(); err != nil {
		return err
	}
	defer shutdownLogging()

	Logger.Info("Starting up...", "version", Version, "build", BuildDate, "session", MatchContext.Session())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := storage.NewBackend(config.GetStorageConfig(), SlogManager)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("storage init: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}()
	Logger.Info("Storage backend initialized", "type", config.GetStorageConfig().Type)

	influxManager := setupInflux(ctx)
	if influxManager != nil {
		defer influxManager.Close()
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(Logger))
	if err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}

	deps := worker.Dependencies{LogManager: SlogManager, Match: MatchContext}
	if influxManager != nil {
		deps.Influx = influxManager
	}
	workerManager := worker.NewManager(deps, backend)
	workerManager.RegisterHandlers(d)

	var session *matchSession
	if offline != "" {
		session, err = offlineSession(ctx, offline, d)
	} else {
		session, err = onlineSession(ctx, d)
	}
	if err != nil {
		d.Close()
		return err
	}
	defer session.close()

	if err := workerManager.StartMatch(session.match); err != nil {
		d.Close()
		return fmt.Errorf("start match: %w", err)
	}

	monitorService := startMonitor(session, influxManager, backend)
	runErr := session.play(ctx, d)

	// buffered events must reach storage before the match is closed
	d.Close()
	if monitorService != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = monitorService.Stop(stopCtx)
		cancel()
	}
	if err := workerManager.EndMatch(); err != nil {
		Logger.Error("Failed to end match", "error", err)
	}
	uploadReplay(workerManager)

	if errors.Is(runErr, context.Canceled) {
		Logger.Info("Interrupted, shutting down")
		return nil
	}
	return runErr
}

func setupLogging() error {
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	name := "offline"
	if players, err := config.GetPlayers(); err == nil && len(players) > 0 {
		name = players[0].Name
	}
	path := logging.LogFilePath(logsDir, name, SessionStartTime)
	if _, err := os.Stat(path); err == nil {
		_ = os.Rename(path, path+".old")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	logFile = f
	ZLogger = zerolog.New(f).With().Timestamp().Str("session", MatchContext.Session().String()).Logger()

	otelCfg := config.GetOTelConfig()
	OTelProvider, err = intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		InstanceID:   MatchContext.Session().String(),
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    f,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		Logger.Error("Failed to initialize OTel provider", "error", err)
		OTelProvider = nil
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}

	var extra []io.Writer
	if config.GetBool("graylog.enabled") {
		w, err := logging.NewGELFWriter(config.GetString("graylog.address"))
		if err != nil {
			Logger.Warn("Graylog unavailable", "error", err)
		} else {
			extra = append(extra, w)
		}
	}

	SlogManager.WithTurnInfo(MatchContext)
	SlogManager.Setup(io.MultiWriter(os.Stdout, f), config.GetString("logLevel"), otelLogProvider, extra...)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", path)
	return nil
}

func shutdownLogging() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("OTel shutdown failed", "error", err)
		}
	}
	if logFile != nil {
		_ = logFile.Close()
	}
}

func setupInflux(ctx context.Context) *influx.Manager {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return nil
	}
	backup := filepath.Join(config.GetString("logsDir"),
		fmt.Sprintf("influx_%s.lp.gz", SessionStartTime.Format("20060102_150405")))
	m := influx.NewManager(cfg, ZLogger, backup)
	if err := m.Connect(ctx); err != nil {
		Logger.Warn("InfluxDB unavailable, metrics disabled", "error", err)
		return nil
	}
	Logger.Info("InfluxDB connected", "valid", m.IsValid)
	return m
}

func uploadReplay(w *worker.Manager) {
	path, meta, ok := w.ExportedFile()
	if !ok {
		return
	}
	apiKey := config.GetString("api.apiKey")
	if apiKey == "" {
		Logger.Info("Replay kept locally", "path", path)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	client := api.New(config.GetString("api.serverUrl"), apiKey)
	if err := client.Healthcheck(ctx); err != nil {
		Logger.Warn("Replay server unreachable, replay kept locally", "path", path, "error", err)
		return
	}
	if err := client.UploadReplay(ctx, path, meta); err != nil {
		Logger.Error("Replay upload failed", "path", path, "error", err)
		return
	}
	Logger.Info("Replay uploaded", "path", path, "game", meta.GameName)
}
