// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arlanhendrawinata/wagate/internal/api"
	"github.com/arlanhendrawinata/wagate/internal/bus"
	"github.com/arlanhendrawinata/wagate/internal/config"
	"github.com/arlanhendrawinata/wagate/internal/domain/session/manager"
	"github.com/arlanhendrawinata/wagate/internal/domain/session/ports"
	"github.com/arlanhendrawinata/wagate/internal/domain/session/store"
	"github.com/arlanhendrawinata/wagate/internal/health"
	walog "github.com/arlanhendrawinata/wagate/internal/log"
	"github.com/arlanhendrawinata/wagate/internal/qr"
	"github.com/arlanhendrawinata/wagate/internal/telemetry"
	"github.com/arlanhendrawinata/wagate/internal/transport/loopback"
	"github.com/arlanhendrawinata/wagate/internal/version"
)

const shutdownTimeout = 15 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	// Safe defaults until the real config is loaded.
	walog.Configure(walog.Config{
		Level:   "info",
		Service: "wagate",
		Version: version.Version,
	})
	logger := walog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config path precedence: --config, then ${WAGATE_DATA_DIR}/config.yaml
	// when it exists.
	effectivePath := strings.TrimSpace(*configPath)
	if effectivePath == "" {
		dataDir := strings.TrimSpace(config.ParseString("WAGATE_DATA_DIR", config.Defaults().DataDir))
		autoPath := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(autoPath); err == nil {
			effectivePath = autoPath
		}
	}

	loader := config.NewLoader(effectivePath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(walog.FieldEvent, "config.load_failed").
			Str("config_path", effectivePath).
			Msg("failed to load configuration")
	}

	walog.Configure(walog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	logger = walog.WithComponent("daemon")

	if effectivePath != "" {
		logger.Info().
			Str(walog.FieldEvent, "config.loaded").
			Str("source", "file").
			Str("path", effectivePath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str(walog.FieldEvent, "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	if cfg.APIToken == "" {
		logger.Warn().
			Str("security", "weak").
			Msg("API token not configured, authentication disabled. Set WAGATE_API_TOKEN.")
	}

	if err := runDaemon(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Msg("daemon exited with error")
	}
	logger.Info().Str(walog.FieldEvent, "shutdown.complete").Msg("goodbye")
}

func runDaemon(ctx context.Context, cfg config.AppConfig) error {
	logger := walog.WithComponent("daemon")

	provider, err := telemetry.NewProvider(ctx, cfg.Telemetry, cfg.LogService, cfg.Version)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shCtx); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	credStore, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	defer func() {
		if err := credStore.Close(); err != nil {
			logger.Warn().Err(err).Msg("credential store close failed")
		}
	}()

	eventBus, err := buildBus(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init event bus: %w", err)
	}
	defer func() {
		if c, ok := eventBus.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				logger.Warn().Err(err).Msg("event bus close failed")
			}
		}
	}()

	transport := loopback.New(loopback.Options{
		QRDelay:       2 * time.Second,
		AutoOpenAfter: config.ParseDuration("WAGATE_LOOPBACK_AUTOOPEN", 0),
	})

	mgr := manager.New(cfg.Session, credStore, transport, eventBus, qr.NewPNGRenderer())
	defer mgr.Close()

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewStoreChecker(credStore.ListIDs))
	hm.RegisterChecker(health.NewSessionsChecker(mgr.Count, cfg.Session.MaxSessions))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(cfg, mgr, hm).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().
		Str(walog.FieldEvent, "startup").
		Str("version", cfg.Version).
		Str("commit", version.Commit).
		Str("addr", cfg.ListenAddr).
		Str(walog.FieldBackend, cfg.Store.Backend).
		Int("capacity", cfg.Session.MaxSessions).
		Msg("starting wagate")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shCtx)
	})

	g.Go(func() error {
		n, err := mgr.Restore(gctx, cfg.Session.RestoreInterval)
		if err != nil {
			logger.Warn().Err(err).Msg("restore pass failed")
			return nil
		}
		if n > 0 {
			logger.Info().
				Str(walog.FieldEvent, "restore.complete").
				Int("restored", n).
				Msg("relaunched persisted sessions")
		}
		return nil
	})

	g.Go(func() error {
		sw := &manager.Sweeper{
			Manager:  mgr,
			Interval: cfg.Session.SweepInterval,
			Expiry:   cfg.Session.PendingExpiry,
		}
		sw.Run(gctx)
		return nil
	})

	return g.Wait()
}

// buildBus assembles the notification bus, mirroring to Redis pub/sub when
// a notify address is configured.
func buildBus(ctx context.Context, cfg config.AppConfig) (ports.Bus, error) {
	local := bus.NewMemoryBus()

	addr := strings.TrimSpace(cfg.Store.NotifyRedisAddr)
	if addr == "" {
		return local, nil
	}
	return bus.NewRedisMirrorBus(ctx, local, addr, cfg.Store.RedisPassword, cfg.Store.RedisDB)
}
