// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ManuGH/amvhub/internal/config"
	"github.com/ManuGH/amvhub/internal/daemon"
	"github.com/ManuGH/amvhub/internal/health"
	xglog "github.com/ManuGH/amvhub/internal/log"
	"github.com/ManuGH/amvhub/internal/team"
)

var (
	version   = "v0.4.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		case "sync":
			os.Exit(runSyncCLI(os.Args[2:]))
		case "serve":
			os.Args = append(os.Args[:1], os.Args[2:]...)
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Configure logger with safe defaults until config is loaded
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "amvhub",
		Version: version,
	})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "config.load_failed").
			Str("config_path", *configPath).
			Msg("failed to load configuration")
	}

	// Re-configure logger with loaded configuration
	xglog.Configure(xglog.Config{
		Level:   cfg.Log.Level,
		Service: cfg.Log.Service,
		Version: version,
		Env:     cfg.Env,
		Pretty:  cfg.Env == config.EnvDevelopment && config.ParseString("LOG_FORMAT", "") != "json",
	})
	logger = xglog.WithComponent("daemon")
	logConfigSource(logger, *configPath)
	logger.Debug().Interface("config", cfg.Summary()).Msg("effective configuration")
	config.LogOptionalNotices(cfg, logger)

	if err := team.Load(); err != nil {
		logger.Fatal().Err(err).Str(xglog.FieldEvent, "team.load_failed").Msg("embedded team roster is invalid")
	}

	rt, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str(xglog.FieldEvent, "startup.wiring_failed").Msg("failed to initialize services")
	}

	// -------------------------------------------------------------------------
	// Pre-flight Checks (Fail Fast)
	// -------------------------------------------------------------------------
	if err := health.PerformStartupChecks(ctx, cfg, pingerFor(rt.store)); err != nil {
		_ = rt.close(context.Background())
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "startup.check_failed").
			Msg("Startup checks failed. Please verify configuration and connectivity.")
	}

	mgr, err := daemon.NewManager(daemon.DefaultServerConfig(cfg.ListenAddr), daemon.Deps{
		Logger:     logger,
		APIHandler: rt.apiHandler(cfg),
	})
	if err != nil {
		_ = rt.close(context.Background())
		logger.Fatal().Err(err).Msg("failed to create daemon manager")
	}
	mgr.RegisterShutdownHook("runtime", rt.close)

	var scheduler *daemon.Scheduler
	if cfg.Sync.Interval > 0 {
		scheduler = daemon.NewScheduler(rt.syncer.Refresh, cfg.Sync.Interval, refreshTimeout(cfg), logger)
	}

	logger.Info().
		Str(xglog.FieldEvent, "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.ListenAddr).
		Str("kv_backend", cfg.KV.Backend).
		Dur("sync_interval", cfg.Sync.Interval).
		Msg("starting amvhub")

	if err := daemon.NewApp(logger, mgr, scheduler).Run(ctx); err != nil {
		logger.Fatal().Err(err).Str(xglog.FieldEvent, "daemon.failed").Msg("daemon exited with error")
	}
	logger.Info().Str(xglog.FieldEvent, "shutdown.done").Msg("amvhub stopped")
}

// loadConfig applies the precedence ENV > File > Defaults.
func loadConfig(path string) (config.AppConfig, error) {
	return config.NewLoader(strings.TrimSpace(path)).Load()
}

func logConfigSource(logger zerolog.Logger, path string) {
	if strings.TrimSpace(path) != "" {
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str(xglog.FieldSource, "file").
			Str(xglog.FieldPath, path).
			Msg("loaded configuration from file")
		return
	}
	logger.Info().
		Str(xglog.FieldEvent, "config.loaded").
		Str(xglog.FieldSource, "env+defaults").
		Msg("loaded configuration from environment and defaults")
}
